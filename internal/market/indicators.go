package market

import (
	talib "github.com/markcheno/go-talib"
)

// LegSnapshot 是单条腿注入 prompt 的最小指标集。
type LegSnapshot struct {
	Symbol    string  `json:"symbol"`
	LastClose float64 `json:"last_close"`
	RSI14     float64 `json:"rsi_14"`
	SMA20     float64 `json:"sma_20"`
	Change24h float64 `json:"change_pct"`
}

// PairSnapshot 汇总两条腿与两者的价格比。
type PairSnapshot struct {
	LegA       LegSnapshot `json:"leg_a"`
	LegB       LegSnapshot `json:"leg_b"`
	Ratio      float64     `json:"ratio"`
	RatioSMA   float64     `json:"ratio_sma_20"`
	RatioDrift float64     `json:"ratio_drift_pct"` // ratio 相对其均线的偏离
}

// SnapshotLeg 用收盘价序列计算单腿指标；样本不足的指标置零。
func SnapshotLeg(symbol string, candles []Candle) LegSnapshot {
	snap := LegSnapshot{Symbol: symbol}
	closes := Closes(candles)
	n := len(closes)
	if n == 0 {
		return snap
	}
	snap.LastClose = closes[n-1]
	if n > 14 {
		rsi := talib.Rsi(closes, 14)
		snap.RSI14 = rsi[len(rsi)-1]
	}
	if n >= 20 {
		sma := talib.Sma(closes, 20)
		snap.SMA20 = sma[len(sma)-1]
	}
	if n >= 2 {
		first := closes[0]
		if first > 0 {
			snap.Change24h = (closes[n-1] - first) / first * 100
		}
	}
	return snap
}

// SnapshotPair 组合两腿快照并计算价格比及其均线偏离。
func SnapshotPair(a, b LegSnapshot, candlesA, candlesB []Candle) PairSnapshot {
	snap := PairSnapshot{LegA: a, LegB: b}
	if b.LastClose > 0 {
		snap.Ratio = a.LastClose / b.LastClose
	}
	n := len(candlesA)
	if len(candlesB) < n {
		n = len(candlesB)
	}
	if n >= 20 {
		ratios := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			ca := candlesA[len(candlesA)-n+i].Close
			cb := candlesB[len(candlesB)-n+i].Close
			if cb > 0 {
				ratios = append(ratios, ca/cb)
			}
		}
		if len(ratios) >= 20 {
			sma := talib.Sma(ratios, 20)
			snap.RatioSMA = sma[len(sma)-1]
			if snap.RatioSMA > 0 {
				snap.RatioDrift = (snap.Ratio - snap.RatioSMA) / snap.RatioSMA * 100
			}
		}
	}
	return snap
}
