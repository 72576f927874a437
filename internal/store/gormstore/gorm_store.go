package gormstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pairloop/internal/adjuster"
	"pairloop/internal/outcome"
	storemodel "pairloop/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type pairTradeModel = storemodel.PairTradeModel
type biasAdjustmentModel = storemodel.BiasAdjustmentModel

// GormStore 把 outcome 档案与偏置调整镜像进 SQLite，供 HTTP/报表查询。
// JSON 文件仍是事实来源，这里只做可查询副本。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 初始化 Gorm + SQLite 存储。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&pairTradeModel{}, &biasAdjustmentModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for shared connections.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	return s.db.DB()
}

// UpsertTrade 以 trade_id 为冲突键写入/更新一条配对交易镜像。
func (s *GormStore) UpsertTrade(t outcome.TradeOutcome) error {
	now := time.Now().Unix()
	m := pairTradeModel{
		TradeID:       t.ID,
		OpenTimeUnix:  t.OpenTime.Unix(),
		LongSymbol:    t.LongSymbol,
		ShortSymbol:   t.ShortSymbol,
		Reasoning:     t.LLMReasoning,
		EntryJSON:     toJSON(t.EntryPrices),
		SpreadReturn:  t.SpreadReturn,
		Correct:       t.CorrectDirect,
		Status:        string(t.Status),
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	if t.CloseTime != nil {
		m.CloseTimeUnix = t.CloseTime.Unix()
	}
	if t.ExitPrices != nil {
		m.ExitJSON = toJSON(t.ExitPrices)
	}
	if t.Returns != nil {
		m.ReturnsJSON = toJSON(t.Returns)
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"close_time", "exit_prices", "returns", "spread_return",
			"correct_direction", "status", "updated_at",
		}),
	}).Create(&m).Error
}

// SaveAdjustment 追加一条偏置调整镜像。
func (s *GormStore) SaveAdjustment(r adjuster.Record) error {
	m := biasAdjustmentModel{
		TimestampUnix:  r.Timestamp.Unix(),
		OldBias:        r.OldBias,
		NewBias:        r.NewBias,
		Recommendation: r.Recommendation,
		Reasoning:      r.Reasoning,
		Accuracy:       r.Accuracy,
		TradeCount:     r.TradeCount,
		CreatedAtUnix:  time.Now().Unix(),
	}
	return s.db.Create(&m).Error
}

// RecentTrades 返回按 trade_id 倒序的最近 n 条镜像。
func (s *GormStore) RecentTrades(n int) ([]pairTradeModel, error) {
	if n <= 0 {
		n = 50
	}
	var out []pairTradeModel
	err := s.db.Order("trade_id DESC").Limit(n).Find(&out).Error
	return out, err
}

// RecentAdjustments 返回按时间倒序的最近 n 条调整镜像。
func (s *GormStore) RecentAdjustments(n int) ([]biasAdjustmentModel, error) {
	if n <= 0 {
		n = 50
	}
	var out []biasAdjustmentModel
	err := s.db.Order("ts DESC, id DESC").Limit(n).Find(&out).Error
	return out, err
}

func toJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
