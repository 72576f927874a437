package config

import (
	"fmt"
	"strings"
)

func validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Pair.ProfilePath) == "" {
		return fmt.Errorf("pair.profile_path is required")
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Trading.Mode))
	if mode != "paper" && mode != "live" {
		return fmt.Errorf("trading.mode must be paper or live, got %q", cfg.Trading.Mode)
	}
	if cfg.Trading.PositionSizeUSD <= 0 {
		return fmt.Errorf("trading.position_size_usd must be positive")
	}
	if cfg.AI.Enabled {
		if strings.TrimSpace(cfg.AI.Model) == "" {
			return fmt.Errorf("ai.model is required when ai.enabled")
		}
		if strings.TrimSpace(cfg.AI.APIURL) == "" {
			return fmt.Errorf("ai.api_url is required when ai.enabled")
		}
	}
	if cfg.Notify.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notify.Telegram.BotToken) == "" || strings.TrimSpace(cfg.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id")
		}
	}
	return nil
}
