package adjuster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pairloop/internal/analyzer"
	"pairloop/internal/logger"
)

// 偏置控制参数：步长钳制 + 绝对范围钳制，保证偏置只能渐进漂移。
const (
	MinBias               = 0.15
	MaxBias               = 0.85
	NeutralBias           = 0.5
	MaxAdjustmentPerCycle = 0.15
	MinAdjustment         = 0.05
)

// Direction 表示当前偏置暗示的做多方向。
type Direction string

const (
	DirectionA    Direction = "leg_a"
	DirectionB    Direction = "leg_b"
	DirectionNone Direction = ""
)

// Record 是一次生效调整的审计条目，只追加不修改。
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	OldBias        float64   `json:"old_bias"`
	NewBias        float64   `json:"new_bias"`
	Recommendation string    `json:"recommendation"`
	Reasoning      string    `json:"reasoning"`
	Accuracy       float64   `json:"accuracy_at_adjustment"`
	TradeCount     int       `json:"trade_count"`
}

type state struct {
	CurrentBias      float64   `json:"current_bias"`
	Created          time.Time `json:"created"`
	LastUpdated      time.Time `json:"last_updated"`
	Adjustments      []Record  `json:"adjustments"`
	TotalAdjustments int       `json:"total_adjustments"`
}

// Summary 是对外暴露的只读状态快照。
type Summary struct {
	CurrentBias      float64   `json:"current_bias"`
	Instruction      string    `json:"instruction"`
	Direction        Direction `json:"direction"`
	TotalAdjustments int       `json:"total_adjustments"`
	LastUpdated      time.Time `json:"last_updated"`
	LastAdjustment   *Record   `json:"last_adjustment,omitempty"`
}

// Adjuster 持有唯一的偏置标量并应用有界阻尼调整。
// 0.5 为中性，<0.5 偏向 A 腿，>0.5 偏向 B 腿。
type Adjuster struct {
	mu         sync.Mutex
	path       string
	legA, legB string
	st         *state
	sink       func(Record)
}

// SetAuditSink 注册审计记录的外部接收方（例如 SQLite 镜像），每条生效记录调用一次。
func (a *Adjuster) SetAuditSink(fn func(Record)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = fn
}

func New(path, legA, legB string) (*Adjuster, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("adjuster path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	st, err := loadState(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("adjuster state unreadable, resetting to neutral: %v", err)
		}
		now := time.Now().UTC()
		st = &state{CurrentBias: NeutralBias, Created: now, LastUpdated: now, Adjustments: []Record{}}
	}
	return &Adjuster{
		path: path,
		legA: strings.ToUpper(strings.TrimSpace(legA)),
		legB: strings.ToUpper(strings.TrimSpace(legB)),
		st:   st,
	}, nil
}

func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing adjuster state failed: %w", err)
	}
	if st.CurrentBias < MinBias || st.CurrentBias > MaxBias {
		return nil, fmt.Errorf("persisted bias %.3f outside [%.2f, %.2f]", st.CurrentBias, MinBias, MaxBias)
	}
	if st.Adjustments == nil {
		st.Adjustments = []Record{}
	}
	return &st, nil
}

func (a *Adjuster) CurrentBias() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st.CurrentBias
}

// BiasInstruction 把偏置离散成五档文字指令，供注入 LLM prompt。
func (a *Adjuster) BiasInstruction() string {
	return a.instructionFor(a.CurrentBias())
}

func (a *Adjuster) instructionFor(bias float64) string {
	switch {
	case bias < 0.25:
		return fmt.Sprintf("STRONG preference for longing %s over %s", a.legA, a.legB)
	case bias < 0.40:
		return fmt.Sprintf("Lean towards longing %s", a.legA)
	case bias <= 0.60:
		return "No directional preference between the two legs"
	case bias < 0.75:
		return fmt.Sprintf("Lean towards longing %s", a.legB)
	default:
		return fmt.Sprintf("STRONG preference for longing %s over %s", a.legB, a.legA)
	}
}

// SuggestedDirection 返回偏置暗示的做多腿；0.40~0.60 区间视为无偏好。
func (a *Adjuster) SuggestedDirection() Direction {
	return directionFor(a.CurrentBias())
}

func directionFor(bias float64) Direction {
	switch {
	case bias < 0.40:
		return DirectionA
	case bias > 0.60:
		return DirectionB
	default:
		return DirectionNone
	}
}

// SuggestedLongSymbol 把方向翻译成具体 symbol，无偏好返回空串。
func (a *Adjuster) SuggestedLongSymbol() string {
	switch a.SuggestedDirection() {
	case DirectionA:
		return a.legA
	case DirectionB:
		return a.legB
	default:
		return ""
	}
}

// Adjust 朝分析建议的目标偏置走一步：
// 死区 |target-old| < MinAdjustment 时不动；步长钳到 ±MaxAdjustmentPerCycle；
// 结果再钳到 [MinBias, MaxBias]；钳后位移 < 0.01 也视为不动。
// 返回调整后的偏置。
func (a *Adjuster) Adjust(res analyzer.Result, tradeCount int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := a.st.CurrentBias
	target := res.SuggestedBias
	needed := target - old
	if needed > -MinAdjustment && needed < MinAdjustment {
		logger.Debugf("bias adjustment below dead zone (%.3f -> %.3f), holding", old, target)
		return old
	}

	step := needed
	if step > MaxAdjustmentPerCycle {
		step = MaxAdjustmentPerCycle
	} else if step < -MaxAdjustmentPerCycle {
		step = -MaxAdjustmentPerCycle
	}
	next := clampBias(old + step)
	if diff := next - old; diff > -0.01 && diff < 0.01 {
		logger.Debugf("bias adjustment clamped to nothing (%.3f), holding", old)
		return old
	}

	now := time.Now().UTC()
	rec := Record{
		Timestamp:      now,
		OldBias:        old,
		NewBias:        next,
		Recommendation: string(res.Recommendation),
		Reasoning:      res.Reasoning,
		Accuracy:       res.Accuracy,
		TradeCount:     tradeCount,
	}
	a.st.Adjustments = append(a.st.Adjustments, rec)
	a.st.TotalAdjustments++
	a.st.CurrentBias = next
	a.st.LastUpdated = now
	a.saveLocked()
	if a.sink != nil {
		a.sink(rec)
	}
	logger.Infof("bias adjusted %.3f -> %.3f (target=%.3f rec=%s acc=%.0f%% trades=%d)",
		old, next, target, res.Recommendation, res.Accuracy*100, tradeCount)
	return next
}

// ResetToNeutral 无条件回到 0.5，并留下 manual_reset 审计记录。
func (a *Adjuster) ResetToNeutral(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := a.st.CurrentBias
	now := time.Now().UTC()
	rec := Record{
		Timestamp:      now,
		OldBias:        old,
		NewBias:        NeutralBias,
		Recommendation: "manual_reset",
		Reasoning:      reason,
	}
	a.st.Adjustments = append(a.st.Adjustments, rec)
	a.st.TotalAdjustments++
	a.st.CurrentBias = NeutralBias
	a.st.LastUpdated = now
	a.saveLocked()
	if a.sink != nil {
		a.sink(rec)
	}
	logger.Infof("bias reset to neutral (was %.3f): %s", old, reason)
}

// History 返回最近 n 条审计记录（时间正序），n<=0 返回全部。
func (a *Adjuster) History(n int) []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := a.st.Adjustments
	if n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

func (a *Adjuster) StateSummary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Summary{
		CurrentBias:      a.st.CurrentBias,
		TotalAdjustments: a.st.TotalAdjustments,
		LastUpdated:      a.st.LastUpdated,
	}
	if n := len(a.st.Adjustments); n > 0 {
		last := a.st.Adjustments[n-1]
		s.LastAdjustment = &last
	}
	s.Instruction = a.instructionFor(a.st.CurrentBias)
	s.Direction = directionFor(a.st.CurrentBias)
	return s
}

func clampBias(v float64) float64 {
	if v < MinBias {
		return MinBias
	}
	if v > MaxBias {
		return MaxBias
	}
	return v
}

func (a *Adjuster) saveLocked() {
	data, err := json.MarshalIndent(a.st, "", "  ")
	if err != nil {
		logger.Errorf("marshal adjuster state failed: %v", err)
		return
	}
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.Errorf("write adjuster state failed: %v", err)
		return
	}
	if err := os.Rename(tmp, a.path); err != nil {
		logger.Errorf("replace adjuster state failed: %v", err)
	}
}
