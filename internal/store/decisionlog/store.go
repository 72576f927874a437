package decisionlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pairloop/internal/decision"

	_ "modernc.org/sqlite"
)

// 中文说明：
// 决策周期日志：每轮引擎循环写一条（prompt、模型原文、方向选择、产出的决策），
// 方便事后排查"那一轮为什么开了这个方向"。

// Record 代表一条决策周期日志。
type Record struct {
	ID         int64               `json:"id"`
	TraceID    string              `json:"trace_id"`
	Timestamp  int64               `json:"ts"`
	ProviderID string              `json:"provider_id"`
	System     string              `json:"system_prompt"`
	User       string              `json:"user_prompt"`
	RawOutput  string              `json:"raw_output"`
	Choice     decision.PairChoice `json:"choice"`
	Decisions  []decision.Decision `json:"decisions"`
	Bias       float64             `json:"bias"`
	Error      string              `json:"error,omitempty"`
	Note       string              `json:"note,omitempty"`
}

// Store 管理决策周期日志的 SQLite 持久化。
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	ownsDB bool
}

// New 初始化 SQLite 存储。
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// UseExternalDB 复用外部（例如 GORM）初始化的 SQLite 连接，避免多连接锁冲突。
func (s *Store) UseExternalDB(db *sql.DB) error {
	if s == nil {
		return fmt.Errorf("decision log store 未初始化")
	}
	if db == nil {
		return fmt.Errorf("external db 不能为空")
	}
	if err := ensureSchema(db); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsDB && s.db != nil && s.db != db {
		_ = s.db.Close()
	}
	s.db = db
	s.ownsDB = false
	return nil
}

// Close 关闭底层 DB（外部连接不关）。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decision_cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT,
			ts INTEGER NOT NULL,
			provider_id TEXT,
			system_prompt TEXT,
			user_prompt TEXT,
			raw_output TEXT,
			choice_json TEXT,
			decisions_json TEXT,
			bias REAL,
			error TEXT,
			note TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decision_cycles_ts_id ON decision_cycles(ts DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert 写入一条周期日志。
func (s *Store) Insert(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("decision log store 已关闭")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().Unix()
	}
	choiceJSON, _ := json.Marshal(rec.Choice)
	decisionsJSON, _ := json.Marshal(rec.Decisions)
	_, err := s.db.Exec(
		`INSERT INTO decision_cycles
			(trace_id, ts, provider_id, system_prompt, user_prompt, raw_output, choice_json, decisions_json, bias, error, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Timestamp, rec.ProviderID, rec.System, rec.User, rec.RawOutput,
		string(choiceJSON), string(decisionsJSON), rec.Bias, rec.Error, rec.Note, time.Now().Unix(),
	)
	return err
}

// Recent 返回按时间倒序的最近 n 条记录。
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		n = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}
	rows, err := s.db.Query(
		`SELECT id, trace_id, ts, provider_id, system_prompt, user_prompt, raw_output,
				choice_json, decisions_json, bias, error, note
		 FROM decision_cycles ORDER BY ts DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, n)
	for rows.Next() {
		var rec Record
		var choiceJSON, decisionsJSON sql.NullString
		var traceID, providerID, system, user, raw, errText, note sql.NullString
		if err := rows.Scan(&rec.ID, &traceID, &rec.Timestamp, &providerID, &system, &user, &raw,
			&choiceJSON, &decisionsJSON, &rec.Bias, &errText, &note); err != nil {
			return nil, err
		}
		rec.TraceID = traceID.String
		rec.ProviderID = providerID.String
		rec.System = system.String
		rec.User = user.String
		rec.RawOutput = raw.String
		rec.Error = errText.String
		rec.Note = note.String
		if choiceJSON.Valid && choiceJSON.String != "" {
			_ = json.Unmarshal([]byte(choiceJSON.String), &rec.Choice)
		}
		if decisionsJSON.Valid && decisionsJSON.String != "" {
			_ = json.Unmarshal([]byte(decisionsJSON.String), &rec.Decisions)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
