package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pairloop/internal/decision"
	"pairloop/internal/logger"

	"github.com/shopspring/decimal"
)

// Paper 是内存撮合的模拟交易所：市价全成交、无滑点、无手续费。
type Paper struct {
	mu        sync.Mutex
	positions map[string]*PositionSnapshot
}

func NewPaper() *Paper {
	return &Paper{positions: make(map[string]*PositionSnapshot)}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) ListPositions(ctx context.Context) ([]PositionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PositionSnapshot, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}

func (p *Paper) Execute(ctx context.Context, d decision.Decision, price float64) (*ExecutionResult, error) {
	if price <= 0 {
		return nil, fmt.Errorf("paper execution requires a positive price for %s", d.Symbol)
	}
	symbol := strings.ToUpper(strings.TrimSpace(d.Symbol))

	p.mu.Lock()
	defer p.mu.Unlock()

	switch d.Action {
	case decision.ActionOpenLong, decision.ActionOpenShort:
		if _, exists := p.positions[symbol]; exists {
			return nil, fmt.Errorf("position already open for %s", symbol)
		}
		qty := quantityFor(d.PositionSizeUSD, price)
		if qty <= 0 {
			return nil, fmt.Errorf("position size %.2f USD too small at price %.4f", d.PositionSizeUSD, price)
		}
		side := "long"
		if d.Action == decision.ActionOpenShort {
			side = "short"
		}
		p.positions[symbol] = &PositionSnapshot{
			Symbol:      symbol,
			Side:        side,
			EntryPrice:  price,
			Quantity:    qty,
			NotionalUSD: d.PositionSizeUSD,
			OpenedAt:    time.Now().UTC(),
		}
		logger.Infof("paper fill %s %s qty=%.6f price=%.4f", d.Action, symbol, qty, price)
		return &ExecutionResult{Symbol: symbol, Action: d.Action, Price: price, Quantity: qty}, nil

	case decision.ActionCloseLong, decision.ActionCloseShort:
		pos, exists := p.positions[symbol]
		if !exists {
			return nil, fmt.Errorf("no open position for %s", symbol)
		}
		pnl := pnlFor(pos, price)
		delete(p.positions, symbol)
		logger.Infof("paper close %s qty=%.6f entry=%.4f exit=%.4f pnl=%.2f", symbol, pos.Quantity, pos.EntryPrice, price, pnl)
		return &ExecutionResult{Symbol: symbol, Action: d.Action, Price: price, Quantity: pos.Quantity, PnLUSD: pnl}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", d.Action)
	}
}

// quantityFor 用 decimal 做名义金额到数量的换算，保留 6 位，向下取整。
func quantityFor(usd, price float64) float64 {
	if usd <= 0 || price <= 0 {
		return 0
	}
	qty := decimal.NewFromFloat(usd).Div(decimal.NewFromFloat(price)).RoundDown(6)
	f, _ := qty.Float64()
	return f
}

func pnlFor(pos *PositionSnapshot, exitPrice float64) float64 {
	entry := decimal.NewFromFloat(pos.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(pos.Quantity)
	diff := exit.Sub(entry)
	if pos.Side == "short" {
		diff = diff.Neg()
	}
	f, _ := diff.Mul(qty).Round(4).Float64()
	return f
}
