package analyzer

import (
	"fmt"
	"math"

	"pairloop/internal/outcome"
)

// Recommendation 是绩效分析给出的调整建议。
type Recommendation string

const (
	RecHoldSteady       Recommendation = "hold_steady"
	RecIncreaseABias    Recommendation = "increase_a_bias"
	RecIncreaseBBias    Recommendation = "increase_b_bias"
	RecInsufficientData Recommendation = "insufficient_data"
	RecNeutral          Recommendation = "neutral"
)

// 阈值常量：准确率分档与两腿差异门槛。
const (
	MinTrades               = 5
	AccuracyGood            = 0.55
	AccuracyBad             = 0.45
	AccuracyTerrible        = 0.35
	BiasDifferenceThreshold = 0.15
)

// Result 是一次分析的完整输出；构造后不再修改。
type Result struct {
	Recommendation  Recommendation `json:"recommendation"`
	Accuracy        float64        `json:"accuracy"`
	SampleSize      int            `json:"sample_size"`
	SuggestedBias   float64        `json:"suggested_bias"`
	Reasoning       string         `json:"reasoning"`
	AccuracyA       float64        `json:"accuracy_a"`
	AccuracyB       float64        `json:"accuracy_b"`
	AvgSpreadReturn float64        `json:"avg_spread_return"`
	Confidence      float64        `json:"confidence"`
}

// Directional 表示该建议是否指向某条腿。
func (r Recommendation) Directional() bool {
	return r == RecIncreaseABias || r == RecIncreaseBBias
}

// Analyzer 是无状态的纯函数组件：滚动统计进，建议与目标偏置出。
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

// Analyze 把滚动统计映射为建议。任何输入都返回完整的 Result，不报错。
func (a *Analyzer) Analyze(stats outcome.Stats) Result {
	res := Result{
		Accuracy:        stats.Accuracy,
		SampleSize:      stats.Total,
		AccuracyA:       stats.LongA.Accuracy,
		AccuracyB:       stats.LongB.Accuracy,
		AvgSpreadReturn: stats.AvgSpreadReturn,
		SuggestedBias:   0.5,
	}
	if stats.Total < MinTrades {
		res.Recommendation = RecInsufficientData
		res.Confidence = 0.0
		res.Reasoning = fmt.Sprintf("only %d closed trades, need %d before adjusting", stats.Total, MinTrades)
		return res
	}

	res.SuggestedBias = suggestedBias(stats)

	switch {
	case stats.Accuracy >= AccuracyGood:
		res.Recommendation = RecHoldSteady
		res.Confidence = 0.8
		res.Reasoning = fmt.Sprintf("accuracy %.0f%% is healthy, keep current bias", stats.Accuracy*100)

	case stats.Accuracy < AccuracyTerrible:
		res.Recommendation, res.Confidence = terribleDirection(stats)
		res.Reasoning = fmt.Sprintf("accuracy %.0f%% is unacceptable, lean away from the losing leg", stats.Accuracy*100)

	case stats.Accuracy < AccuracyBad:
		gap := stats.LongB.Accuracy - stats.LongA.Accuracy
		if math.Abs(gap) > BiasDifferenceThreshold && stats.LongA.Count > 0 && stats.LongB.Count > 0 {
			if gap > 0 {
				res.Recommendation = RecIncreaseBBias
				res.Reasoning = fmt.Sprintf("long-%s trades clearly outperform (%.0f%% vs %.0f%%)", stats.LegB, stats.LongB.Accuracy*100, stats.LongA.Accuracy*100)
			} else {
				res.Recommendation = RecIncreaseABias
				res.Reasoning = fmt.Sprintf("long-%s trades clearly outperform (%.0f%% vs %.0f%%)", stats.LegA, stats.LongA.Accuracy*100, stats.LongB.Accuracy*100)
			}
			res.Confidence = 0.6
		} else {
			res.Recommendation = RecNeutral
			res.Confidence = 0.4
			res.Reasoning = fmt.Sprintf("accuracy %.0f%% is weak but neither leg stands out", stats.Accuracy*100)
		}

	default:
		res.Recommendation = RecHoldSteady
		res.Confidence = 0.5
		res.Reasoning = fmt.Sprintf("accuracy %.0f%% is middling, no adjustment warranted", stats.Accuracy*100)
	}
	return res
}

// terribleDirection 在整体准确率崩坏时选择逃生方向：
// 偏离准确率更低的那条腿；两边同烂时偏离尝试次数更多的一边。
func terribleDirection(stats outcome.Stats) (Recommendation, float64) {
	a, b := stats.LongA, stats.LongB
	switch {
	case a.Count == 0 && b.Count == 0:
		return RecNeutral, 0.4
	case a.Count == 0:
		return RecIncreaseABias, 0.7
	case b.Count == 0:
		return RecIncreaseBBias, 0.7
	}
	if a.Accuracy < b.Accuracy {
		conf := 0.7
		if a.Count > b.Count {
			// 更常试的一边同时更差：强证据
			conf = 0.9
		}
		return RecIncreaseBBias, conf
	}
	if b.Accuracy < a.Accuracy {
		conf := 0.7
		if b.Count > a.Count {
			conf = 0.9
		}
		return RecIncreaseABias, conf
	}
	// 准确率打平：远离样本多的一边
	if a.Count > b.Count {
		return RecIncreaseBBias, 0.8
	}
	return RecIncreaseABias, 0.8
}

// suggestedBias 给出目标偏置（0.5 中性，<0.5 偏 A 腿，>0.5 偏 B 腿）。
// 只给建议值，实际步长/范围钳制由 adjuster 负责。
func suggestedBias(stats outcome.Stats) float64 {
	a, b := stats.LongA, stats.LongB
	if a.Count == 0 && b.Count == 0 {
		return 0.5
	}
	if a.Count == 0 {
		if b.Accuracy > 0.5 {
			return 0.6
		}
		return 0.5
	}
	if b.Count == 0 {
		if a.Accuracy > 0.5 {
			return 0.4
		}
		return 0.5
	}
	diff := b.Accuracy - a.Accuracy
	if math.Abs(diff) < BiasDifferenceThreshold {
		return 0.5
	}
	step := math.Min(0.3, math.Abs(diff)/2)
	if diff > 0 {
		return 0.5 + step
	}
	return 0.5 - step
}

// ShouldTriggerAdjustment 只有方向性建议才触发实际调整。
func (a *Analyzer) ShouldTriggerAdjustment(res Result) bool {
	switch res.Recommendation {
	case RecIncreaseABias, RecIncreaseBBias:
		return true
	default:
		return false
	}
}
