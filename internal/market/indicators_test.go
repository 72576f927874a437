package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func candlesFromCloses(closes []float64) []Candle {
	out := make([]Candle, len(closes))
	base := time.Now().Add(-time.Duration(len(closes)) * time.Hour)
	for i, c := range closes {
		out[i] = Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Hour).UnixMilli(),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour).UnixMilli(),
			Close:     c,
		}
	}
	return out
}

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSnapshotLegComputesIndicators(t *testing.T) {
	candles := candlesFromCloses(rising(40, 100, 1))
	snap := SnapshotLeg("ETHUSDT", candles)

	assert.Equal(t, "ETHUSDT", snap.Symbol)
	assert.InDelta(t, 139, snap.LastClose, 0.001)
	// 单边上涨的序列 RSI 应饱和在高位
	assert.Greater(t, snap.RSI14, 90.0)
	// SMA20 覆盖最后 20 根：120..139 的均值
	assert.InDelta(t, 129.5, snap.SMA20, 0.001)
	assert.InDelta(t, 39.0, snap.Change24h, 0.001)
}

func TestSnapshotLegSmallSample(t *testing.T) {
	snap := SnapshotLeg("ETHUSDT", candlesFromCloses([]float64{100, 101}))
	assert.InDelta(t, 101, snap.LastClose, 0.001)
	assert.Zero(t, snap.RSI14)
	assert.Zero(t, snap.SMA20)
	assert.InDelta(t, 1.0, snap.Change24h, 0.001)

	empty := SnapshotLeg("ETHUSDT", nil)
	assert.Zero(t, empty.LastClose)
}

func TestSnapshotPairRatio(t *testing.T) {
	candlesA := candlesFromCloses(rising(30, 3000, 10))
	candlesB := candlesFromCloses(rising(30, 45000, 0))
	a := SnapshotLeg("ETHUSDT", candlesA)
	b := SnapshotLeg("BTCUSDT", candlesB)

	snap := SnapshotPair(a, b, candlesA, candlesB)
	assert.InDelta(t, a.LastClose/b.LastClose, snap.Ratio, 1e-9)
	assert.Greater(t, snap.RatioSMA, 0.0)
	// A 单边走强，ratio 应在均线上方
	assert.Greater(t, snap.RatioDrift, 0.0)
}

func TestSnapshotPairZeroDenominator(t *testing.T) {
	a := LegSnapshot{Symbol: "A", LastClose: 100}
	b := LegSnapshot{Symbol: "B", LastClose: 0}
	snap := SnapshotPair(a, b, nil, nil)
	assert.Zero(t, snap.Ratio)
}

func TestDropUnclosed(t *testing.T) {
	closed := Candle{CloseTime: time.Now().Add(-time.Minute).UnixMilli()}
	open := Candle{CloseTime: time.Now().Add(30 * time.Minute).UnixMilli()}

	got := DropUnclosed([]Candle{closed, open}, time.Hour)
	assert.Len(t, got, 1)

	got = DropUnclosed([]Candle{closed}, time.Hour)
	assert.Len(t, got, 1)

	assert.Empty(t, DropUnclosed(nil, time.Hour))
}
