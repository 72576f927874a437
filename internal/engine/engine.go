package engine

import (
	"context"
	"fmt"
	"time"

	"pairloop/internal/decision"
	"pairloop/internal/gateway/exchange"
	"pairloop/internal/gateway/notifier"
	"pairloop/internal/logger"
	"pairloop/internal/market"
	"pairloop/internal/outcome"
	"pairloop/internal/pkg/circuit"
	"pairloop/internal/scheduler"
	"pairloop/internal/store/decisionlog"
	"pairloop/internal/store/gormstore"
	"pairloop/internal/strategy"

	"github.com/google/uuid"
)

// 中文说明：
// PairsEngine 驱动完整的决策周期：
//   对账 → 到期平仓 → （无持仓时）行情快照 → 方向选择 → 双腿开仓 → 建档。
// 行情源故障走熔断器，熔断打开期间整轮跳过，不产生半腿持仓。

// PairsEngine 按 decision_interval 周期执行配对交易闭环。
type PairsEngine struct {
	strat   *strategy.SelfImprovingPairsStrategy
	source  market.Source
	exch    exchange.Exchange
	notify  notifier.Notifier
	mirror  *gormstore.GormStore
	declog  *decisionlog.Store
	breaker *circuit.CircuitBreaker
}

func New(
	strat *strategy.SelfImprovingPairsStrategy,
	source market.Source,
	exch exchange.Exchange,
	notify notifier.Notifier,
	mirror *gormstore.GormStore,
	declog *decisionlog.Store,
) *PairsEngine {
	return &PairsEngine{
		strat:   strat,
		source:  source,
		exch:    exch,
		notify:  notify,
		mirror:  mirror,
		declog:  declog,
		breaker: circuit.NewCircuitBreaker("market-data", 3, 2*time.Minute),
	}
}

// Run 阻塞运行决策循环，ctx 取消后返回。
func (e *PairsEngine) Run(ctx context.Context) error {
	interval := e.strat.Profile().DecisionDuration()
	loop := scheduler.NewIntervalLoop(ctx, "pairs-engine", interval)
	loop.RunImmediately = true
	loop.Start(func() { e.runCycle(ctx) })
	return ctx.Err()
}

// RunCycleOnce 暴露单轮执行（供 HTTP 手动触发与测试）。
func (e *PairsEngine) RunCycleOnce(ctx context.Context) {
	e.runCycle(ctx)
}

func (e *PairsEngine) runCycle(ctx context.Context) {
	traceID := uuid.NewString()
	if !e.breaker.Allow() {
		logger.Warnf("cycle %s skipped: market data circuit open", traceID)
		return
	}

	positions, err := e.exch.ListPositions(ctx)
	if err != nil {
		logger.Errorf("cycle %s: listing positions failed: %v", traceID, err)
		e.breaker.RecordFailure()
		return
	}

	trade := e.strat.OpenTrade()
	if trade != nil {
		if !e.strat.SyncWithPositions(positions) {
			logger.Warnf("cycle %s: open trade id=%d out of sync with exchange, manual attention needed", traceID, trade.ID)
		}
		if e.strat.ShouldClose(trade, time.Now().UTC()) {
			e.closePair(ctx, traceID, trade)
		} else {
			logger.Debugf("cycle %s: trade id=%d still within hold window", traceID, trade.ID)
		}
		return
	}

	e.openPair(ctx, traceID)
}

// openPair 执行一次完整的开仓流程。第二腿失败时回滚第一腿，保证不留半腿。
func (e *PairsEngine) openPair(ctx context.Context, traceID string) {
	profile := e.strat.Profile()
	snap, prices, err := e.snapshot(ctx, profile.LegA, profile.LegB, profile.KlineInterval, profile.KlineLimit)
	if err != nil {
		logger.Errorf("cycle %s: market snapshot failed: %v", traceID, err)
		e.breaker.RecordFailure()
		return
	}
	e.breaker.RecordSuccess()

	choice, trace := e.strat.ChoosePair(ctx, snap)
	decisions := e.strat.OpenDecisions(choice)

	executed := make([]decision.Decision, 0, len(decisions))
	for _, d := range decisions {
		if err := decision.Validate(&d); err != nil {
			logger.Errorf("cycle %s: invalid decision %s %s: %v", traceID, d.Action, d.Symbol, err)
			e.rollback(ctx, traceID, executed, prices)
			return
		}
		if _, err := e.exch.Execute(ctx, d, prices[d.Symbol]); err != nil {
			logger.Errorf("cycle %s: executing %s %s failed: %v", traceID, d.Action, d.Symbol, err)
			e.rollback(ctx, traceID, executed, prices)
			return
		}
		executed = append(executed, d)
	}

	tradeID, err := e.strat.RecordEntry(choice, prices)
	if err != nil {
		logger.Errorf("cycle %s: recording entry failed: %v", traceID, err)
		e.rollback(ctx, traceID, executed, prices)
		return
	}
	e.mirrorOpenTrade()
	e.logCycle(traceID, choice, trace, decisions, "opened")
	e.notifyf("📈 开仓 %s\n做多 %s / 做空 %s\n来源: %s\n%s",
		profile.Name, choice.Long, choice.Short, choice.Source, choice.Reason)
	logger.Infof("cycle %s: pair opened trade_id=%d long=%s short=%s source=%s",
		traceID, tradeID, choice.Long, choice.Short, choice.Source)
}

// closePair 平掉两腿并回填档案；一腿平仓失败时保留档案为 open，下轮重试。
func (e *PairsEngine) closePair(ctx context.Context, traceID string, trade *outcome.TradeOutcome) {
	prices, err := e.latestPrices(ctx, trade.LongSymbol, trade.ShortSymbol)
	if err != nil {
		logger.Errorf("cycle %s: fetching exit prices failed: %v", traceID, err)
		e.breaker.RecordFailure()
		return
	}
	e.breaker.RecordSuccess()

	for _, d := range e.strat.CloseDecisions(trade) {
		if _, err := e.exch.Execute(ctx, d, prices[d.Symbol]); err != nil {
			logger.Errorf("cycle %s: closing %s failed, will retry next cycle: %v", traceID, d.Symbol, err)
			return
		}
	}

	summary, err := e.strat.RecordExit(trade.ID, prices)
	if err != nil {
		logger.Errorf("cycle %s: recording exit failed: %v", traceID, err)
		return
	}
	e.mirrorClosedTrade(trade.ID)
	e.notifyf("📉 平仓 #%d\n多 %s %+.2f%% / 空 %s %+.2f%%\n价差收益 %+.2f%% 方向%s",
		summary.TradeID, summary.LongSymbol, summary.LongReturn,
		summary.ShortSymbol, summary.ShortReturn, summary.SpreadReturn,
		correctLabel(summary.CorrectDirection))
	logger.Infof("cycle %s: pair closed trade_id=%d spread=%.2f%% correct=%v",
		traceID, summary.TradeID, summary.SpreadReturn, summary.CorrectDirection)
}

// rollback 平掉已成交的腿，维持"要么双腿在场要么全不在场"。
func (e *PairsEngine) rollback(ctx context.Context, traceID string, executed []decision.Decision, prices map[string]float64) {
	for _, d := range executed {
		undo := decision.Decision{Symbol: d.Symbol, Reasoning: "rollback after partial pair entry"}
		if d.Action == decision.ActionOpenLong {
			undo.Action = decision.ActionCloseLong
		} else {
			undo.Action = decision.ActionCloseShort
		}
		if _, err := e.exch.Execute(ctx, undo, prices[d.Symbol]); err != nil {
			logger.Errorf("cycle %s: ROLLBACK FAILED for %s, manual intervention required: %v", traceID, d.Symbol, err)
		}
	}
}

// snapshot 拉取两腿 K 线并计算指标快照，同时返回最新收盘价表。
func (e *PairsEngine) snapshot(ctx context.Context, legA, legB, interval string, limit int) (market.PairSnapshot, map[string]float64, error) {
	candlesA, err := e.source.FetchKlines(ctx, legA, interval, limit)
	if err != nil {
		return market.PairSnapshot{}, nil, fmt.Errorf("klines %s: %w", legA, err)
	}
	candlesB, err := e.source.FetchKlines(ctx, legB, interval, limit)
	if err != nil {
		return market.PairSnapshot{}, nil, fmt.Errorf("klines %s: %w", legB, err)
	}
	snapA := market.SnapshotLeg(legA, candlesA)
	snapB := market.SnapshotLeg(legB, candlesB)
	snap := market.SnapshotPair(snapA, snapB, candlesA, candlesB)

	prices, err := e.latestPrices(ctx, legA, legB)
	if err != nil {
		return market.PairSnapshot{}, nil, err
	}
	return snap, prices, nil
}

func (e *PairsEngine) latestPrices(ctx context.Context, symbols ...string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		p, err := e.source.LatestPrice(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", sym, err)
		}
		if p <= 0 {
			return nil, fmt.Errorf("price %s: non-positive %.4f", sym, p)
		}
		prices[sym] = p
	}
	return prices, nil
}

func (e *PairsEngine) mirrorOpenTrade() {
	if e.mirror == nil {
		return
	}
	if trade := e.strat.OpenTrade(); trade != nil {
		if err := e.mirror.UpsertTrade(*trade); err != nil {
			logger.Warnf("mirroring open trade failed: %v", err)
		}
	}
}

func (e *PairsEngine) mirrorClosedTrade(tradeID int64) {
	if e.mirror == nil {
		return
	}
	for _, trade := range e.strat.Trades() {
		if trade.ID == tradeID {
			if err := e.mirror.UpsertTrade(trade); err != nil {
				logger.Warnf("mirroring closed trade failed: %v", err)
			}
			return
		}
	}
}

func (e *PairsEngine) logCycle(traceID string, choice decision.PairChoice, trace strategy.CycleTrace, decisions []decision.Decision, note string) {
	if e.declog == nil {
		return
	}
	rec := decisionlog.Record{
		TraceID:    traceID,
		Timestamp:  time.Now().Unix(),
		ProviderID: trace.ProviderID,
		System:     trace.System,
		User:       trace.User,
		RawOutput:  trace.RawOutput,
		Choice:     choice,
		Decisions:  decisions,
		Bias:       e.strat.CurrentBias(),
		Error:      trace.Err,
		Note:       note,
	}
	if err := e.declog.Insert(rec); err != nil {
		logger.Warnf("writing decision log failed: %v", err)
	}
}

func (e *PairsEngine) notifyf(format string, args ...any) {
	if e.notify == nil {
		return
	}
	if err := e.notify.SendText(fmt.Sprintf(format, args...)); err != nil {
		logger.Warnf("notification failed: %v", err)
	}
}

func correctLabel(correct bool) string {
	if correct {
		return "正确 ✅"
	}
	return "错误 ❌"
}
