package outcome

import "time"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// TradeOutcome 是一笔配对交易的完整记录：开仓即建档，平仓时回填结果。
type TradeOutcome struct {
	ID            int64              `json:"id"`
	OpenTime      time.Time          `json:"open_time"`
	CloseTime     *time.Time         `json:"close_time"`
	LongSymbol    string             `json:"long_symbol"`
	ShortSymbol   string             `json:"short_symbol"`
	LLMReasoning  string             `json:"llm_reasoning"`
	EntryPrices   map[string]float64 `json:"entry_prices"`
	ExitPrices    map[string]float64 `json:"exit_prices"`
	Returns       map[string]float64 `json:"returns"`
	CorrectDirect bool               `json:"correct_direction"`
	SpreadReturn  float64            `json:"spread_return"`
	Status        Status             `json:"status"`
}

func (t *TradeOutcome) IsOpen() bool { return t.Status == StatusOpen }

// ExitSummary 是 RecordExit 的返回值，只携带平仓计算结果。
type ExitSummary struct {
	TradeID          int64   `json:"trade_id"`
	LongSymbol       string  `json:"long_symbol"`
	ShortSymbol      string  `json:"short_symbol"`
	LongReturn       float64 `json:"long_return"`
	ShortReturn      float64 `json:"short_return"`
	SpreadReturn     float64 `json:"spread_return"`
	CorrectDirection bool    `json:"correct_direction"`
}

// SideStats 按"做多哪条腿"分桶后的战绩。
type SideStats struct {
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Stats 是最近 N 笔已平仓交易的滚动统计快照。
type Stats struct {
	Total           int       `json:"total"`
	Correct         int       `json:"correct"`
	Accuracy        float64   `json:"accuracy"`
	AvgSpreadReturn float64   `json:"avg_spread_return"`
	LegA            string    `json:"leg_a"`
	LegB            string    `json:"leg_b"`
	LongA           SideStats `json:"long_a"`
	LongB           SideStats `json:"long_b"`
	SufficientData  bool      `json:"sufficient_data"`
}

type metadata struct {
	Created     time.Time `json:"created"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
}

// document 是落盘的完整 JSON 结构，每次变更整体重写。
type document struct {
	Metadata             metadata        `json:"metadata"`
	Trades               []*TradeOutcome `json:"trades"`
	NextID               int64           `json:"next_id"`
	LastReviewTradeCount int             `json:"last_review_trade_count"`
	LastReviewTime       *time.Time      `json:"last_review_time,omitempty"`
}

func newDocument() *document {
	return &document{
		Metadata: metadata{
			Created:     time.Now().UTC(),
			Version:     "1.0",
			Description: "self-improving pairs trade outcomes",
		},
		Trades: []*TradeOutcome{},
		NextID: 1,
	}
}
