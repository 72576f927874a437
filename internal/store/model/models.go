package model

import (
	"gorm.io/datatypes"
)

// PairTradeModel 是 outcome 档案在 SQLite 中的镜像，用于 HTTP 查询与报表。
type PairTradeModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TradeID       int64          `gorm:"column:trade_id;uniqueIndex"`
	OpenTimeUnix  int64          `gorm:"column:open_time"`
	CloseTimeUnix int64          `gorm:"column:close_time"`
	LongSymbol    string         `gorm:"column:long_symbol;index"`
	ShortSymbol   string         `gorm:"column:short_symbol"`
	Reasoning     string         `gorm:"column:reasoning"`
	EntryJSON     datatypes.JSON `gorm:"column:entry_prices;type:TEXT"`
	ExitJSON      datatypes.JSON `gorm:"column:exit_prices;type:TEXT"`
	ReturnsJSON   datatypes.JSON `gorm:"column:returns;type:TEXT"`
	SpreadReturn  float64        `gorm:"column:spread_return"`
	Correct       bool           `gorm:"column:correct_direction"`
	Status        string         `gorm:"column:status;index"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (PairTradeModel) TableName() string { return "pair_trades" }

// BiasAdjustmentModel 镜像每一次生效的偏置调整，追加写入。
type BiasAdjustmentModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	TimestampUnix  int64   `gorm:"column:ts;index"`
	OldBias        float64 `gorm:"column:old_bias"`
	NewBias        float64 `gorm:"column:new_bias"`
	Recommendation string  `gorm:"column:recommendation"`
	Reasoning      string  `gorm:"column:reasoning"`
	Accuracy       float64 `gorm:"column:accuracy_at_adjustment"`
	TradeCount     int     `gorm:"column:trade_count"`
	CreatedAtUnix  int64   `gorm:"column:created_at"`
}

func (BiasAdjustmentModel) TableName() string { return "bias_adjustments" }
