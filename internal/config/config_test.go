package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
ai:
  model: deepseek-chat
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, "configs/pair.yaml", cfg.Pair.ProfilePath)
	assert.True(t, cfg.Pair.WatchReload)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.APIURL)
	assert.Equal(t, 60, cfg.AI.TimeoutSeconds)
	assert.Equal(t, "https://fapi.binance.com", cfg.Market.RESTBaseURL)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.True(t, cfg.Trading.IsPaper())
	assert.InDelta(t, 100.0, cfg.Trading.PositionSizeUSD, 0.001)
	assert.Equal(t, "logs/strategies/self_improving_pairs_outcomes.json", cfg.Storage.OutcomePath)
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
app:
  env: prod
  http_addr: ":8080"
ai:
  enabled: false
trading:
  mode: paper
  position_size_usd: 500
  leverage: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.False(t, cfg.AI.Enabled)
	assert.InDelta(t, 500.0, cfg.Trading.PositionSizeUSD, 0.001)
	assert.Equal(t, 3, cfg.Trading.Leverage)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
trading:
  position_size_usd: 300
ai:
  model: base-model
`)
	path := writeConfig(t, dir, "config.yaml", `
include:
  - base.yaml
ai:
  model: override-model
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	// 主文件覆盖 include，未覆盖的键保留 include 的值
	assert.Equal(t, "override-model", cfg.AI.Model)
	assert.InDelta(t, 300.0, cfg.Trading.PositionSizeUSD, 0.001)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeConfig(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "include cycle")
}

func TestValidateRejectsBadMode(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
ai:
  model: m
trading:
  mode: dry-run
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "trading.mode")
}

func TestValidateRequiresModelWhenAIEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
ai:
  enabled: true
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "ai.model")
}

func TestValidateTelegramNeedsCredentials(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
ai:
  model: m
notify:
  telegram:
    enabled: true
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "telegram")
}
