package exchange

import (
	"context"
	"time"

	"pairloop/internal/decision"
)

// PositionSnapshot 描述交易所侧的一条持仓腿。
type PositionSnapshot struct {
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"` // long | short
	EntryPrice  float64   `json:"entry_price"`
	Quantity    float64   `json:"quantity"`
	NotionalUSD float64   `json:"notional_usd"`
	OpenedAt    time.Time `json:"opened_at"`
}

// ExecutionResult 是一次下单的回执。
type ExecutionResult struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	PnLUSD   float64 `json:"pnl_usd,omitempty"`
}

// Exchange 是执行层抽象：查持仓、按决策下单。
type Exchange interface {
	Name() string
	ListPositions(ctx context.Context) ([]PositionSnapshot, error)
	Execute(ctx context.Context, d decision.Decision, price float64) (*ExecutionResult, error)
}
