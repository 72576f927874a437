package exchange

import (
	"context"
	"testing"

	"pairloop/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperOpenAndListPositions(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()

	res, err := p.Execute(ctx, decision.Decision{
		Symbol: "ETHUSDT", Action: decision.ActionOpenLong, PositionSizeUSD: 300,
	}, 3000)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.Quantity, 1e-9)

	positions, err := p.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "ETHUSDT", positions[0].Symbol)
	assert.Equal(t, "long", positions[0].Side)
	assert.InDelta(t, 3000, positions[0].EntryPrice, 0.001)
}

func TestPaperRejectsDuplicateOpen(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()
	d := decision.Decision{Symbol: "ETHUSDT", Action: decision.ActionOpenLong, PositionSizeUSD: 300}

	_, err := p.Execute(ctx, d, 3000)
	require.NoError(t, err)
	_, err = p.Execute(ctx, d, 3000)
	assert.Error(t, err)
}

func TestPaperCloseComputesPnL(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()

	_, err := p.Execute(ctx, decision.Decision{
		Symbol: "BTCUSDT", Action: decision.ActionOpenShort, PositionSizeUSD: 450,
	}, 45000)
	require.NoError(t, err)

	// 空头：价格下跌为盈利
	res, err := p.Execute(ctx, decision.Decision{
		Symbol: "BTCUSDT", Action: decision.ActionCloseShort,
	}, 44100)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, res.Quantity, 1e-9)
	assert.InDelta(t, 9.0, res.PnLUSD, 0.001)

	positions, err := p.ListPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPaperCloseWithoutPosition(t *testing.T) {
	p := NewPaper()
	_, err := p.Execute(context.Background(), decision.Decision{
		Symbol: "ETHUSDT", Action: decision.ActionCloseLong,
	}, 3000)
	assert.Error(t, err)
}

func TestPaperRejectsBadInput(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()

	_, err := p.Execute(ctx, decision.Decision{Symbol: "ETHUSDT", Action: decision.ActionOpenLong, PositionSizeUSD: 100}, 0)
	assert.Error(t, err)

	_, err = p.Execute(ctx, decision.Decision{Symbol: "ETHUSDT", Action: "hold"}, 3000)
	assert.Error(t, err)
}
