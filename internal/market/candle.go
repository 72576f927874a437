package market

import (
	"context"
	"time"
)

// Candle 是一根已收盘的 K 线。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Closes 抽出收盘价序列。
func Closes(candles []Candle) []float64 {
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.Close)
	}
	return out
}

// DropUnclosed 去掉仍在走的最后一根 K 线（按收盘时间判断）。
func DropUnclosed(candles []Candle, interval time.Duration) []Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if time.UnixMilli(last.CloseTime).After(time.Now()) {
		return candles[:len(candles)-1]
	}
	return candles
}

// Source 是引擎消费的行情抽象。
type Source interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
