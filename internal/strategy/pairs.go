package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pairloop/internal/adjuster"
	"pairloop/internal/analyzer"
	"pairloop/internal/config"
	"pairloop/internal/decision"
	"pairloop/internal/gateway/exchange"
	"pairloop/internal/gateway/provider"
	"pairloop/internal/logger"
	"pairloop/internal/market"
	"pairloop/internal/outcome"
	"pairloop/internal/pair"
)

// 中文说明：
// SelfImprovingPairsStrategy 是闭环的核心编排者：
//   选方向（LLM / 偏置 / 默认）→ 开仓建档 → 到期平仓回填 →
//   每 N 笔复盘一次（滚动统计 → 绩效分析 → 偏置调整），
// 调整后的偏置会注入下一次 prompt，让策略从自身成败中学习。

// SelfImprovingPairsStrategy 配对交易自改进策略。
type SelfImprovingPairsStrategy struct {
	pairs    *pair.Manager
	tracker  *outcome.Tracker
	analyzer *analyzer.Analyzer
	adjuster *adjuster.Adjuster
	model    provider.ModelProvider
	trading  config.TradingConfig
}

func NewSelfImprovingPairsStrategy(
	pairs *pair.Manager,
	tracker *outcome.Tracker,
	an *analyzer.Analyzer,
	adj *adjuster.Adjuster,
	model provider.ModelProvider,
	trading config.TradingConfig,
) *SelfImprovingPairsStrategy {
	return &SelfImprovingPairsStrategy{
		pairs:    pairs,
		tracker:  tracker,
		analyzer: an,
		adjuster: adj,
		model:    model,
		trading:  trading,
	}
}

// CycleTrace 记录一次方向选择的模型往返，供决策日志持久化。
type CycleTrace struct {
	ProviderID string
	System     string
	User       string
	RawOutput  string
	Err        string
}

// ChoosePair 决定本轮做多/做空方向。
// 降级链：LLM 回复 → 偏置暗示的方向 → profile 的 default_long。
func (s *SelfImprovingPairsStrategy) ChoosePair(ctx context.Context, snap market.PairSnapshot) (decision.PairChoice, CycleTrace) {
	profile := s.pairs.Current()
	stats := s.tracker.RollingStats(profile.RollingWindow)
	instruction := s.adjuster.BiasInstruction()

	var trace CycleTrace
	if s.model != nil && s.model.Enabled() {
		trace.ProviderID = s.model.ID()
		trace.System = BuildSystemPrompt()
		trace.User = BuildUserPrompt(profile, snap, stats, instruction)
		logger.LogLLMRequest(s.model.ID(), trace.System, trace.User)
		raw, err := s.model.Call(ctx, trace.System, trace.User)
		if err != nil {
			trace.Err = err.Error()
			logger.Warnf("model call failed, falling back: %v", err)
		} else {
			trace.RawOutput = raw
			logger.LogLLMResponse(s.model.ID(), raw)
			choice, perr := ParseReply(raw, profile.LegA, profile.LegB)
			if perr != nil {
				trace.Err = perr.Error()
				logger.Warnf("model reply unusable, falling back: %v", perr)
			} else {
				logger.Infof("model picked long=%s short=%s (%s)", choice.Long, choice.Short, choice.Reason)
				return *choice, trace
			}
		}
	}
	return s.fallbackChoice(profile), trace
}

// fallbackChoice 先看偏置是否给出明确方向，再退到配置默认腿。
func (s *SelfImprovingPairsStrategy) fallbackChoice(profile *pair.Profile) decision.PairChoice {
	if long := s.adjuster.SuggestedLongSymbol(); long != "" && profile.Contains(long) {
		choice := decision.PairChoice{
			Long:   long,
			Short:  profile.OtherLeg(long),
			Reason: fmt.Sprintf("learned bias %.2f favors longing %s", s.adjuster.CurrentBias(), long),
			Source: "bias",
		}
		logger.Infof("bias fallback picked long=%s short=%s", choice.Long, choice.Short)
		return choice
	}
	choice := decision.PairChoice{
		Long:   profile.DefaultLong,
		Short:  profile.OtherLeg(profile.DefaultLong),
		Reason: "configured default direction",
		Source: "default",
	}
	logger.Infof("default fallback picked long=%s short=%s", choice.Long, choice.Short)
	return choice
}

// Trades 透出全部交易档案副本。
func (s *SelfImprovingPairsStrategy) Trades() []outcome.TradeOutcome {
	return s.tracker.Trades()
}

// CurrentBias 透出当前偏置（供日志与 HTTP 层使用）。
func (s *SelfImprovingPairsStrategy) CurrentBias() float64 {
	return s.adjuster.CurrentBias()
}

// Profile 透出当前生效的 pair profile。
func (s *SelfImprovingPairsStrategy) Profile() *pair.Profile {
	return s.pairs.Current()
}

// OpenDecisions 把方向选择展开成一多一空两条决策。
func (s *SelfImprovingPairsStrategy) OpenDecisions(choice decision.PairChoice) []decision.Decision {
	return []decision.Decision{
		{
			Symbol:          choice.Long,
			Action:          decision.ActionOpenLong,
			PositionSizeUSD: s.trading.PositionSizeUSD,
			Leverage:        s.trading.Leverage,
			Reasoning:       choice.Reason,
		},
		{
			Symbol:          choice.Short,
			Action:          decision.ActionOpenShort,
			PositionSizeUSD: s.trading.PositionSizeUSD,
			Leverage:        s.trading.Leverage,
			Reasoning:       choice.Reason,
		},
	}
}

// RecordEntry 在两腿都已成交后建档。
func (s *SelfImprovingPairsStrategy) RecordEntry(choice decision.PairChoice, entryPrices map[string]float64) (int64, error) {
	return s.tracker.RecordEntry(choice.Long, choice.Short, entryPrices, choice.Reason)
}

// OpenTrade 透出当前未平仓的配对交易。
func (s *SelfImprovingPairsStrategy) OpenTrade() *outcome.TradeOutcome {
	return s.tracker.OpenTrade()
}

// ShouldClose 判断持仓是否已到持有期限。
func (s *SelfImprovingPairsStrategy) ShouldClose(trade *outcome.TradeOutcome, now time.Time) bool {
	if trade == nil || !trade.IsOpen() {
		return false
	}
	return now.Sub(trade.OpenTime) >= s.pairs.Current().HoldDuration()
}

// CloseDecisions 为一笔在场交易生成两条平仓决策。
func (s *SelfImprovingPairsStrategy) CloseDecisions(trade *outcome.TradeOutcome) []decision.Decision {
	if trade == nil {
		return nil
	}
	reason := fmt.Sprintf("hold time %s reached", s.pairs.Current().HoldTime)
	return []decision.Decision{
		{Symbol: trade.LongSymbol, Action: decision.ActionCloseLong, Reasoning: reason, TradeID: trade.ID},
		{Symbol: trade.ShortSymbol, Action: decision.ActionCloseShort, Reasoning: reason, TradeID: trade.ID},
	}
}

// RecordExit 回填平仓结果，随后检查是否到达复盘节点。
func (s *SelfImprovingPairsStrategy) RecordExit(tradeID int64, exitPrices map[string]float64) (*outcome.ExitSummary, error) {
	summary, err := s.tracker.RecordExit(tradeID, exitPrices)
	if err != nil {
		return nil, err
	}
	s.maybeReview()
	return summary, nil
}

// maybeReview 每累计 review_interval 笔已平仓交易触发一次自改进循环。
func (s *SelfImprovingPairsStrategy) maybeReview() {
	profile := s.pairs.Current()
	pending := s.tracker.TradesSinceLastReview()
	if pending < profile.ReviewInterval {
		logger.Debugf("review deferred: %d/%d closed trades since last review", pending, profile.ReviewInterval)
		return
	}

	stats := s.tracker.RollingStats(profile.RollingWindow)
	res := s.analyzer.Analyze(stats)
	logger.InfoBlock(fmt.Sprintf(
		"performance review\nsample=%d accuracy=%.0f%% long_%s=%.0f%% long_%s=%.0f%%\nrecommendation=%s confidence=%.1f\n%s",
		res.SampleSize, res.Accuracy*100,
		stats.LegA, res.AccuracyA*100, stats.LegB, res.AccuracyB*100,
		res.Recommendation, res.Confidence, res.Reasoning))

	if s.analyzer.ShouldTriggerAdjustment(res) {
		s.adjuster.Adjust(res, stats.Total)
	} else {
		logger.Infof("review complete, no bias adjustment (%s)", res.Recommendation)
	}
	s.tracker.MarkReviewComplete()
}

// ReviewNow 无视计数立即复盘一次（供手工触达/HTTP 调用）。
func (s *SelfImprovingPairsStrategy) ReviewNow() analyzer.Result {
	profile := s.pairs.Current()
	stats := s.tracker.RollingStats(profile.RollingWindow)
	res := s.analyzer.Analyze(stats)
	if s.analyzer.ShouldTriggerAdjustment(res) {
		s.adjuster.Adjust(res, stats.Total)
	}
	s.tracker.MarkReviewComplete()
	return res
}

// SyncWithPositions 对账：档案里的在场交易必须在交易所两腿齐全。
// 缺腿视为孤儿（例如人工平掉了一边），告警并返回 false，由引擎决定善后。
func (s *SelfImprovingPairsStrategy) SyncWithPositions(positions []exchange.PositionSnapshot) bool {
	trade := s.tracker.OpenTrade()
	if trade == nil {
		return true
	}
	held := make(map[string]string, len(positions))
	for _, p := range positions {
		held[strings.ToUpper(p.Symbol)] = p.Side
	}
	ok := true
	if side, exists := held[trade.LongSymbol]; !exists || side != "long" {
		logger.Warnf("orphan pair trade id=%d: long leg %s missing on exchange", trade.ID, trade.LongSymbol)
		ok = false
	}
	if side, exists := held[trade.ShortSymbol]; !exists || side != "short" {
		logger.Warnf("orphan pair trade id=%d: short leg %s missing on exchange", trade.ID, trade.ShortSymbol)
		ok = false
	}
	return ok
}
