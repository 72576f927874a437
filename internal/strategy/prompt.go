package strategy

import (
	"fmt"
	"strings"

	"pairloop/internal/market"
	"pairloop/internal/outcome"
	"pairloop/internal/pair"
)

// 中文说明：
// prompt 构建器。system prompt 固定角色与输出格式；user prompt 注入
// 行情快照、滚动绩效与当前偏置指令，让模型带着历史教训做选择。

const systemPrompt = `You are a crypto pairs-trading analyst. You are given two futures legs.
Pick exactly one leg to LONG and the other to SHORT based on relative strength.
Respond with exactly three lines:
LONG: <symbol>
SHORT: <symbol>
REASON: <one sentence>
Do not add anything else.`

// BuildSystemPrompt 返回固定的 system prompt。
func BuildSystemPrompt() string { return systemPrompt }

// BuildUserPrompt 组装行情 + 绩效 + 偏置的 user prompt。
func BuildUserPrompt(profile *pair.Profile, snap market.PairSnapshot, stats outcome.Stats, biasInstruction string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pair: %s (%s vs %s)\n\n", profile.Name, profile.LegA, profile.LegB)

	b.WriteString("## Market snapshot\n")
	writeLeg(&b, snap.LegA)
	writeLeg(&b, snap.LegB)
	if snap.Ratio > 0 {
		fmt.Fprintf(&b, "- %s/%s price ratio: %.6f", snap.LegA.Symbol, snap.LegB.Symbol, snap.Ratio)
		if snap.RatioSMA > 0 {
			fmt.Fprintf(&b, " (SMA20 %.6f, drift %+.2f%%)", snap.RatioSMA, snap.RatioDrift)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Recent performance\n")
	if stats.Total == 0 {
		b.WriteString("- No closed trades yet.\n")
	} else {
		fmt.Fprintf(&b, "- Last %d trades: %d correct (%.0f%% accuracy), avg spread return %+.2f%%\n",
			stats.Total, stats.Correct, stats.Accuracy*100, stats.AvgSpreadReturn)
		if stats.LongA.Count > 0 {
			fmt.Fprintf(&b, "- When longing %s: %d/%d correct (%.0f%%)\n",
				stats.LegA, stats.LongA.Correct, stats.LongA.Count, stats.LongA.Accuracy*100)
		}
		if stats.LongB.Count > 0 {
			fmt.Fprintf(&b, "- When longing %s: %d/%d correct (%.0f%%)\n",
				stats.LegB, stats.LongB.Correct, stats.LongB.Count, stats.LongB.Accuracy*100)
		}
		if !stats.SufficientData {
			b.WriteString("- Sample is still small; treat the numbers above with caution.\n")
		}
	}

	b.WriteString("\n## Learned directional guidance\n")
	fmt.Fprintf(&b, "- %s\n", biasInstruction)

	b.WriteString("\nPick the leg to LONG and the leg to SHORT now.")
	return b.String()
}

func writeLeg(b *strings.Builder, leg market.LegSnapshot) {
	if leg.Symbol == "" {
		return
	}
	fmt.Fprintf(b, "- %s: close %.4f", leg.Symbol, leg.LastClose)
	if leg.RSI14 > 0 {
		fmt.Fprintf(b, ", RSI14 %.1f", leg.RSI14)
	}
	if leg.SMA20 > 0 {
		fmt.Fprintf(b, ", SMA20 %.4f", leg.SMA20)
	}
	fmt.Fprintf(b, ", window change %+.2f%%\n", leg.Change24h)
}
