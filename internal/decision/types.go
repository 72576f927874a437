package decision

// 中文说明：
// 本文件定义执行层消费的决策结构：严格的 action 枚举 + 最小字段集。

const (
	ActionOpenLong   = "open_long"
	ActionOpenShort  = "open_short"
	ActionCloseLong  = "close_long"
	ActionCloseShort = "close_short"
)

// Decision 单笔决策动作。一次配对开仓会产出一多一空两条决策。
type Decision struct {
	Symbol          string  `json:"symbol"`
	Action          string  `json:"action"`
	PositionSizeUSD float64 `json:"position_size_usd,omitempty"`
	Leverage        int     `json:"leverage,omitempty"`
	Confidence      int     `json:"confidence,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
	// TradeID 关联 outcome tracker 中的配对交易档案（平仓动作携带）。
	TradeID int64 `json:"trade_id,omitempty"`
}

func (d Decision) IsOpen() bool {
	return d.Action == ActionOpenLong || d.Action == ActionOpenShort
}

func (d Decision) IsClose() bool {
	return d.Action == ActionCloseLong || d.Action == ActionCloseShort
}

// PairChoice 是 LLM（或回退逻辑）给出的配对方向：做多哪条腿、做空哪条腿。
type PairChoice struct {
	Long   string `json:"long"`
	Short  string `json:"short"`
	Reason string `json:"reason"`
	// Source 标记方向来源：llm | bias | default
	Source string `json:"source,omitempty"`
}
