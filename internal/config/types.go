package config

import "strings"

// Config 是 pairloop 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Pair    PairConfig    `toml:"pair"`
	AI      AIConfig      `toml:"ai"`
	Market  MarketConfig  `toml:"market"`
	Trading TradingConfig `toml:"trading"`
	Notify  NotifyConfig  `toml:"notify"`
	Storage StorageConfig `toml:"storage"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
}

// PairConfig 指向交易对 profile 文件（两条腿、持仓时长等定义都在 profile 内）。
type PairConfig struct {
	ProfilePath string `toml:"profile_path"`
	WatchReload bool   `toml:"watch_reload"`
}

// AIConfig 描述唯一的决策模型入口（OpenAI 兼容 chat/completions）。
type AIConfig struct {
	Enabled        bool              `toml:"enabled"`
	Provider       string            `toml:"provider"`
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	Headers        map[string]string `toml:"headers"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries"`
}

type MarketConfig struct {
	RESTBaseURL    string `toml:"rest_base_url"`
	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TradingConfig 控制仓位大小与执行模式。
type TradingConfig struct {
	Mode            string  `toml:"mode"` // "paper" | "live"
	PositionSizeUSD float64 `toml:"position_size_usd"`
	Leverage        int     `toml:"leverage"`
}

func (t TradingConfig) IsPaper() bool {
	return strings.ToLower(strings.TrimSpace(t.Mode)) != "live"
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// StorageConfig 汇总所有落盘路径。
type StorageConfig struct {
	OutcomePath     string `toml:"outcome_path"`
	AdjusterPath    string `toml:"adjuster_path"`
	TradeDBPath     string `toml:"trade_db_path"`
	DecisionLogPath string `toml:"decision_log_path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
