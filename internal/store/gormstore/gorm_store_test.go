package gormstore

import (
	"path/filepath"
	"testing"
	"time"

	"pairloop/internal/adjuster"
	"pairloop/internal/outcome"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertTradeOpenThenClose(t *testing.T) {
	s := newTestStore(t)

	open := outcome.TradeOutcome{
		ID:          1,
		OpenTime:    time.Now().UTC(),
		LongSymbol:  "ETHUSDT",
		ShortSymbol: "BTCUSDT",
		EntryPrices: map[string]float64{"ETHUSDT": 3000, "BTCUSDT": 45000},
		Status:      outcome.StatusOpen,
	}
	require.NoError(t, s.UpsertTrade(open))

	now := time.Now().UTC()
	closed := open
	closed.CloseTime = &now
	closed.ExitPrices = map[string]float64{"ETHUSDT": 3100, "BTCUSDT": 45500}
	closed.Returns = map[string]float64{"ETHUSDT": 3.33, "BTCUSDT": -1.11}
	closed.SpreadReturn = 2.22
	closed.CorrectDirect = true
	closed.Status = outcome.StatusClosed
	require.NoError(t, s.UpsertTrade(closed))

	trades, err := s.RecentTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, string(outcome.StatusClosed), trades[0].Status)
	assert.True(t, trades[0].Correct)
	assert.InDelta(t, 2.22, trades[0].SpreadReturn, 0.001)
}

func TestSaveAndListAdjustments(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveAdjustment(adjuster.Record{
		Timestamp:      time.Now().UTC(),
		OldBias:        0.5,
		NewBias:        0.65,
		Recommendation: "increase_b_bias",
		Accuracy:       0.3,
		TradeCount:     5,
	}))
	require.NoError(t, s.SaveAdjustment(adjuster.Record{
		Timestamp: time.Now().UTC().Add(time.Second),
		OldBias:   0.65,
		NewBias:   0.8,
	}))

	recs, err := s.RecentAdjustments(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.InDelta(t, 0.8, recs[0].NewBias, 0.001)
	assert.InDelta(t, 0.65, recs[1].NewBias, 0.001)
}
