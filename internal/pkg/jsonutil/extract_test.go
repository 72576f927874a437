package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONFromFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"long\": \"ETHUSDT\"}\n```\nthanks"
	got, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"long": "ETHUSDT"}`, got)
}

func TestExtractJSONBareObjectWithProse(t *testing.T) {
	raw := `My pick is {"long": "BTCUSDT", "short": "ETHUSDT"} today.`
	got, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"long": "BTCUSDT", "short": "ETHUSDT"}`, got)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	raw := `{"a": {"b": 1}, "c": "x}y"}`
	got, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, raw, got)
}

func TestExtractJSONArray(t *testing.T) {
	raw := "result: [1, 2, 3]"
	got, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, "[1, 2, 3]", got)
}

func TestExtractJSONEscapedQuotes(t *testing.T) {
	raw := `{"reason": "he said \"buy\" {now}"}`
	got, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, raw, got)
}

func TestExtractJSONNothingFound(t *testing.T) {
	_, ok := ExtractJSON("no structured data here")
	assert.False(t, ok)

	_, ok = ExtractJSON("")
	assert.False(t, ok)

	// 不闭合的对象不应被接受
	_, ok = ExtractJSON(`{"open": 1`)
	assert.False(t, ok)
}
