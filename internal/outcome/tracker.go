package outcome

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pairloop/internal/logger"
)

// MinTradesForStats 是滚动统计被视为"样本充分"的最小已平仓笔数。
const MinTradesForStats = 5

var (
	ErrSameSymbol      = errors.New("pair legs must differ")
	ErrOpenTradeExists = errors.New("an open pair trade already exists")
	ErrTradeNotFound   = errors.New("trade not found")
	ErrTradeClosed     = errors.New("trade already closed")
)

// Tracker 持久化配对交易的成败记录，并按已配置的两条腿输出滚动统计。
// 所有修改都在同一把互斥锁内完成读-改-写，随后整体重写 JSON 文件。
type Tracker struct {
	mu   sync.Mutex
	path string
	legA string
	legB string
	doc  *document
}

// NewTracker 加载（或新建）outcome 文档。文件损坏时告警并从空文档重建，
// 需要严格失败语义的调用方应先用 LoadDocument 探测。
func NewTracker(path, legA, legB string) (*Tracker, error) {
	legA = strings.ToUpper(strings.TrimSpace(legA))
	legB = strings.ToUpper(strings.TrimSpace(legB))
	if legA == "" || legB == "" || legA == legB {
		return nil, ErrSameSymbol
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("outcome path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	doc, err := loadDocument(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("outcome document unreadable, starting fresh (history lost): %v", err)
		}
		doc = newDocument()
	}
	return &Tracker{path: path, legA: legA, legB: legB, doc: doc}, nil
}

// VerifyDocument 探测 outcome 文档是否可读。希望"损坏即停"的调用方
// 在构建 Tracker 前先调用它；Tracker 本身总是降级为空档继续。
func VerifyDocument(path string) error {
	_, err := loadDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing outcome document failed: %w", err)
	}
	if doc.NextID <= 0 {
		doc.NextID = int64(len(doc.Trades)) + 1
	}
	if doc.Trades == nil {
		doc.Trades = []*TradeOutcome{}
	}
	return &doc, nil
}

// RecordEntry 建档一笔新的配对交易并返回其 id。
// 已存在未平仓交易时拒绝（每个 pair 同时最多一笔在场）。
func (t *Tracker) RecordEntry(longSymbol, shortSymbol string, entryPrices map[string]float64, reasoning string) (int64, error) {
	longSymbol = strings.ToUpper(strings.TrimSpace(longSymbol))
	shortSymbol = strings.ToUpper(strings.TrimSpace(shortSymbol))
	if longSymbol == shortSymbol {
		return 0, ErrSameSymbol
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if open := t.openTradeLocked(); open != nil {
		return 0, fmt.Errorf("%w: id=%d %s/%s", ErrOpenTradeExists, open.ID, open.LongSymbol, open.ShortSymbol)
	}
	for _, sym := range []string{longSymbol, shortSymbol} {
		if _, ok := entryPrices[sym]; !ok {
			logger.Warnf("entry price missing for %s; returns for that leg will be zero", sym)
		}
	}

	id := t.doc.NextID
	t.doc.NextID++
	trade := &TradeOutcome{
		ID:           id,
		OpenTime:     time.Now().UTC(),
		LongSymbol:   longSymbol,
		ShortSymbol:  shortSymbol,
		LLMReasoning: reasoning,
		EntryPrices:  copyPrices(entryPrices),
		Status:       StatusOpen,
	}
	t.doc.Trades = append(t.doc.Trades, trade)
	t.saveLocked()
	logger.Infof("pair entry recorded id=%d long=%s short=%s", id, longSymbol, shortSymbol)
	return id, nil
}

// RecordExit 回填平仓价格，计算两腿收益、价差收益与方向正误。
// 未知 id 或已平仓返回错误，已有记录保持不变。
func (t *Tracker) RecordExit(tradeID int64, exitPrices map[string]float64) (*ExitSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var trade *TradeOutcome
	for _, tr := range t.doc.Trades {
		if tr.ID == tradeID {
			trade = tr
			break
		}
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrTradeNotFound, tradeID)
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("%w: id=%d", ErrTradeClosed, tradeID)
	}

	entryLong := trade.EntryPrices[trade.LongSymbol]
	entryShort := trade.EntryPrices[trade.ShortSymbol]
	exitLong := exitPrices[trade.LongSymbol]
	exitShort := exitPrices[trade.ShortSymbol]

	longReturn := 0.0
	if entryLong > 0 {
		longReturn = (exitLong - entryLong) / entryLong * 100
	}
	// 空头腿：价格下跌为盈利
	shortReturn := 0.0
	if entryShort > 0 {
		shortReturn = (entryShort - exitShort) / entryShort * 100
	}
	spread := longReturn + shortReturn
	correct := longReturn > -shortReturn

	now := time.Now().UTC()
	trade.CloseTime = &now
	trade.ExitPrices = copyPrices(exitPrices)
	trade.Returns = map[string]float64{
		trade.LongSymbol:  longReturn,
		trade.ShortSymbol: shortReturn,
	}
	trade.SpreadReturn = spread
	trade.CorrectDirect = correct
	trade.Status = StatusClosed
	t.saveLocked()

	logger.Infof("pair exit recorded id=%d long_ret=%.2f%% short_ret=%.2f%% spread=%.2f%% correct=%v",
		tradeID, longReturn, shortReturn, spread, correct)
	return &ExitSummary{
		TradeID:          tradeID,
		LongSymbol:       trade.LongSymbol,
		ShortSymbol:      trade.ShortSymbol,
		LongReturn:       longReturn,
		ShortReturn:      shortReturn,
		SpreadReturn:     spread,
		CorrectDirection: correct,
	}, nil
}

// OpenTrade 返回最近一笔未平仓交易的副本，没有则返回 nil。
func (t *Tracker) OpenTrade() *TradeOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	if open := t.openTradeLocked(); open != nil {
		cp := *open
		return &cp
	}
	return nil
}

func (t *Tracker) openTradeLocked() *TradeOutcome {
	for i := len(t.doc.Trades) - 1; i >= 0; i-- {
		if t.doc.Trades[i].IsOpen() {
			return t.doc.Trades[i]
		}
	}
	return nil
}

// RollingStats 统计最近 n 笔已平仓交易，并按做多的是哪条腿分桶。
func (t *Tracker) RollingStats(n int) Stats {
	if n <= 0 {
		n = 10
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	closed := make([]*TradeOutcome, 0, len(t.doc.Trades))
	for _, tr := range t.doc.Trades {
		if tr.Status == StatusClosed {
			closed = append(closed, tr)
		}
	}
	stats := Stats{LegA: t.legA, LegB: t.legB}
	if len(closed) == 0 {
		return stats
	}
	if len(closed) > n {
		closed = closed[len(closed)-n:]
	}

	sumSpread := 0.0
	for _, tr := range closed {
		stats.Total++
		if tr.CorrectDirect {
			stats.Correct++
		}
		sumSpread += tr.SpreadReturn
		switch tr.LongSymbol {
		case t.legA:
			stats.LongA.Count++
			if tr.CorrectDirect {
				stats.LongA.Correct++
			}
		case t.legB:
			stats.LongB.Count++
			if tr.CorrectDirect {
				stats.LongB.Correct++
			}
		}
	}
	stats.Accuracy = float64(stats.Correct) / float64(stats.Total)
	stats.AvgSpreadReturn = sumSpread / float64(stats.Total)
	if stats.LongA.Count > 0 {
		stats.LongA.Accuracy = float64(stats.LongA.Correct) / float64(stats.LongA.Count)
	}
	if stats.LongB.Count > 0 {
		stats.LongB.Accuracy = float64(stats.LongB.Correct) / float64(stats.LongB.Count)
	}
	stats.SufficientData = stats.Total >= MinTradesForStats
	return stats
}

// TradesSinceLastReview 返回自上次复盘以来新增的已平仓笔数。
func (t *Tracker) TradesSinceLastReview() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closedCountLocked() - t.doc.LastReviewTradeCount
}

func (t *Tracker) MarkReviewComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.doc.LastReviewTradeCount = t.closedCountLocked()
	t.doc.LastReviewTime = &now
	t.saveLocked()
}

func (t *Tracker) closedCountLocked() int {
	n := 0
	for _, tr := range t.doc.Trades {
		if tr.Status == StatusClosed {
			n++
		}
	}
	return n
}

// ClosedCount 返回历史已平仓总笔数。
func (t *Tracker) ClosedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closedCountLocked()
}

// Trades 返回全部记录的副本（供 HTTP/报表只读使用）。
func (t *Tracker) Trades() []TradeOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TradeOutcome, 0, len(t.doc.Trades))
	for _, tr := range t.doc.Trades {
		out = append(out, *tr)
	}
	return out
}

// NextID 返回下一个将被分配的交易 id。
func (t *Tracker) NextID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.NextID
}

// saveLocked 整体重写文档：先写临时文件再原子替换，避免写一半损坏旧档。
// 写盘失败只告警，不回滚内存状态。
func (t *Tracker) saveLocked() {
	data, err := json.MarshalIndent(t.doc, "", "  ")
	if err != nil {
		logger.Errorf("marshal outcome document failed: %v", err)
		return
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.Errorf("write outcome document failed: %v", err)
		return
	}
	if err := os.Rename(tmp, t.path); err != nil {
		logger.Errorf("replace outcome document failed: %v", err)
	}
}

func copyPrices(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
