package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyPrefixLines(t *testing.T) {
	raw := "LONG: ETHUSDT\nSHORT: BTCUSDT\nREASON: ETH momentum stronger"
	choice, err := ParseReply(raw, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", choice.Long)
	assert.Equal(t, "BTCUSDT", choice.Short)
	assert.Equal(t, "ETH momentum stronger", choice.Reason)
	assert.Equal(t, "llm", choice.Source)
}

func TestParseReplyPrefixLinesWithNoise(t *testing.T) {
	raw := "Sure, here is my pick:\n\nlong: btcusdt\nShort: ETHUSDT\nreason: BTC dominance rising\nGood luck!"
	choice, err := ParseReply(raw, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", choice.Long)
	assert.Equal(t, "ETHUSDT", choice.Short)
}

func TestParseReplyFencedJSON(t *testing.T) {
	raw := "```json\n{\"long\": \"ETHUSDT\", \"short\": \"BTCUSDT\", \"reason\": \"ratio below mean\"}\n```"
	choice, err := ParseReply(raw, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", choice.Long)
	assert.Equal(t, "BTCUSDT", choice.Short)
	assert.Equal(t, "ratio below mean", choice.Reason)
}

func TestParseReplyBareJSON(t *testing.T) {
	raw := `The answer: {"long": "BTCUSDT", "short": "ETHUSDT"}`
	choice, err := ParseReply(raw, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", choice.Long)
	assert.Empty(t, choice.Reason)
}

func TestParseReplyRejectsSameLeg(t *testing.T) {
	_, err := ParseReply("LONG: ETHUSDT\nSHORT: ETHUSDT", "ETHUSDT", "BTCUSDT")
	assert.Error(t, err)
}

func TestParseReplyRejectsForeignSymbols(t *testing.T) {
	_, err := ParseReply("LONG: SOLUSDT\nSHORT: BTCUSDT", "ETHUSDT", "BTCUSDT")
	assert.Error(t, err)
}

func TestParseReplyRejectsJSONMissingField(t *testing.T) {
	_, err := ParseReply(`{"long": "ETHUSDT"}`, "ETHUSDT", "BTCUSDT")
	assert.Error(t, err)
}

func TestParseReplyEmptyAndGarbage(t *testing.T) {
	_, err := ParseReply("", "ETHUSDT", "BTCUSDT")
	assert.Error(t, err)

	_, err = ParseReply("I cannot decide today.", "ETHUSDT", "BTCUSDT")
	assert.Error(t, err)
}

func TestCleanSymbolToken(t *testing.T) {
	assert.Equal(t, "ETHUSDT", cleanSymbolToken(" `ethusdt`. "))
	assert.Equal(t, "BTCUSDT", cleanSymbolToken(`"BTCUSDT",`))
}
