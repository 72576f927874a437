package outcome

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outcomes.json")
	tr, err := NewTracker(path, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	return tr
}

func TestRecordEntryAndExitReturns(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.RecordEntry("ETHUSDT", "BTCUSDT",
		map[string]float64{"ETHUSDT": 3000, "BTCUSDT": 45000}, "eth stronger")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	summary, err := tr.RecordExit(id, map[string]float64{"ETHUSDT": 3100, "BTCUSDT": 45500})
	require.NoError(t, err)

	// 多头腿 +3.33%，空头腿价格上涨 1.11% 为亏损
	assert.InDelta(t, 3.3333, summary.LongReturn, 0.001)
	assert.InDelta(t, -1.1111, summary.ShortReturn, 0.001)
	assert.InDelta(t, 2.2222, summary.SpreadReturn, 0.001)
	assert.True(t, summary.CorrectDirection)
}

func TestRecordExitLosingDirection(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.RecordEntry("BTCUSDT", "ETHUSDT",
		map[string]float64{"BTCUSDT": 45000, "ETHUSDT": 3000}, "")
	require.NoError(t, err)

	// BTC 跌 2%，ETH 涨 2%：双腿皆亏
	summary, err := tr.RecordExit(id, map[string]float64{"BTCUSDT": 44100, "ETHUSDT": 3060})
	require.NoError(t, err)
	assert.False(t, summary.CorrectDirection)
	assert.Less(t, summary.SpreadReturn, 0.0)
}

func TestSingleOpenTradeInvariant(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.RecordEntry("ETHUSDT", "BTCUSDT", map[string]float64{"ETHUSDT": 3000, "BTCUSDT": 45000}, "")
	require.NoError(t, err)

	_, err = tr.RecordEntry("BTCUSDT", "ETHUSDT", map[string]float64{"BTCUSDT": 45000, "ETHUSDT": 3000}, "")
	assert.ErrorIs(t, err, ErrOpenTradeExists)
}

func TestRecordEntryRejectsSameSymbol(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.RecordEntry("ETHUSDT", "ETHUSDT", nil, "")
	assert.ErrorIs(t, err, ErrSameSymbol)
}

func TestRecordExitUnknownAndClosed(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.RecordExit(99, nil)
	assert.ErrorIs(t, err, ErrTradeNotFound)

	id, err := tr.RecordEntry("ETHUSDT", "BTCUSDT", map[string]float64{"ETHUSDT": 3000, "BTCUSDT": 45000}, "")
	require.NoError(t, err)
	_, err = tr.RecordExit(id, map[string]float64{"ETHUSDT": 3100, "BTCUSDT": 45000})
	require.NoError(t, err)

	_, err = tr.RecordExit(id, map[string]float64{"ETHUSDT": 3200, "BTCUSDT": 45000})
	assert.ErrorIs(t, err, ErrTradeClosed)
}

func TestMissingEntryPriceYieldsZeroReturn(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.RecordEntry("ETHUSDT", "BTCUSDT", map[string]float64{"BTCUSDT": 45000}, "")
	require.NoError(t, err)

	summary, err := tr.RecordExit(id, map[string]float64{"ETHUSDT": 3100, "BTCUSDT": 44100})
	require.NoError(t, err)
	assert.Zero(t, summary.LongReturn)
	assert.InDelta(t, 2.0, summary.ShortReturn, 0.001)
}

func closeTrade(t *testing.T, tr *Tracker, long, short string, win bool) {
	t.Helper()
	entry := map[string]float64{long: 100, short: 100}
	id, err := tr.RecordEntry(long, short, entry, "")
	require.NoError(t, err)
	exit := map[string]float64{long: 99, short: 100}
	if win {
		exit = map[string]float64{long: 102, short: 100}
	}
	_, err = tr.RecordExit(id, exit)
	require.NoError(t, err)
}

func TestRollingStatsBucketsByLongLeg(t *testing.T) {
	tr := newTestTracker(t)

	// 3 笔做多 ETH（2 胜），2 笔做多 BTC（0 胜）
	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", true)
	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", true)
	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", false)
	closeTrade(t, tr, "BTCUSDT", "ETHUSDT", false)
	closeTrade(t, tr, "BTCUSDT", "ETHUSDT", false)

	stats := tr.RollingStats(10)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Correct)
	assert.InDelta(t, 0.4, stats.Accuracy, 0.001)
	assert.Equal(t, 3, stats.LongA.Count)
	assert.InDelta(t, 2.0/3.0, stats.LongA.Accuracy, 0.001)
	assert.Equal(t, 2, stats.LongB.Count)
	assert.Zero(t, stats.LongB.Accuracy)
	assert.True(t, stats.SufficientData)
}

func TestRollingStatsWindowAndOpenTradesExcluded(t *testing.T) {
	tr := newTestTracker(t)
	for i := 0; i < 4; i++ {
		closeTrade(t, tr, "ETHUSDT", "BTCUSDT", false)
	}
	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", true)
	_, err := tr.RecordEntry("ETHUSDT", "BTCUSDT", map[string]float64{"ETHUSDT": 100, "BTCUSDT": 100}, "")
	require.NoError(t, err)

	stats := tr.RollingStats(2)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Correct)
	assert.False(t, stats.SufficientData)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.json")
	tr, err := NewTracker(path, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)

	id, err := tr.RecordEntry("ETHUSDT", "BTCUSDT", map[string]float64{"ETHUSDT": 3000, "BTCUSDT": 45000}, "r")
	require.NoError(t, err)
	_, err = tr.RecordExit(id, map[string]float64{"ETHUSDT": 3100, "BTCUSDT": 45500})
	require.NoError(t, err)

	reloaded, err := NewTracker(path, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ClosedCount())
	assert.Equal(t, int64(2), reloaded.NextID())

	trades := reloaded.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].CorrectDirect)
	assert.Equal(t, "r", trades[0].LLMReasoning)
}

func TestCorruptDocumentStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Error(t, VerifyDocument(path))

	tr, err := NewTracker(path, "ETHUSDT", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.NextID())
	assert.Nil(t, tr.OpenTrade())
}

func TestReviewCounter(t *testing.T) {
	tr := newTestTracker(t)
	assert.Zero(t, tr.TradesSinceLastReview())

	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", true)
	closeTrade(t, tr, "BTCUSDT", "ETHUSDT", false)
	assert.Equal(t, 2, tr.TradesSinceLastReview())

	tr.MarkReviewComplete()
	assert.Zero(t, tr.TradesSinceLastReview())

	closeTrade(t, tr, "ETHUSDT", "BTCUSDT", true)
	assert.Equal(t, 1, tr.TradesSinceLastReview())
}
