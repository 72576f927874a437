package pair

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pair.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfileDefaults(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, `
leg_a: ethusdt
leg_b: btcusdt
`))
	require.NoError(t, err)

	assert.Equal(t, "pair", p.Name)
	assert.Equal(t, "ETHUSDT", p.LegA)
	assert.Equal(t, "BTCUSDT", p.LegB)
	assert.Equal(t, "ETHUSDT", p.DefaultLong)
	assert.Equal(t, 4*time.Hour, p.HoldDuration())
	assert.Equal(t, 15*time.Minute, p.DecisionDuration())
	assert.Equal(t, "1h", p.KlineInterval)
	assert.Equal(t, 120, p.KlineLimit)
	assert.Equal(t, 5, p.ReviewInterval)
	assert.Equal(t, 10, p.RollingWindow)
}

func TestLoadProfileValidation(t *testing.T) {
	_, err := LoadProfile(writeProfile(t, "leg_a: ETHUSDT\n"))
	assert.Error(t, err)

	_, err = LoadProfile(writeProfile(t, "leg_a: ETHUSDT\nleg_b: ETHUSDT\n"))
	assert.Error(t, err)

	_, err = LoadProfile(writeProfile(t, `
leg_a: ETHUSDT
leg_b: BTCUSDT
default_long: SOLUSDT
`))
	assert.Error(t, err)

	_, err = LoadProfile(writeProfile(t, `
leg_a: ETHUSDT
leg_b: BTCUSDT
hold_time: 4x
`))
	assert.Error(t, err)
}

func TestOtherLegAndContains(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, "leg_a: ETHUSDT\nleg_b: BTCUSDT\n"))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", p.OtherLeg("ethusdt"))
	assert.Equal(t, "ETHUSDT", p.OtherLeg("BTCUSDT"))
	assert.Empty(t, p.OtherLeg("SOLUSDT"))
	assert.True(t, p.Contains(" btcusdt "))
	assert.False(t, p.Contains("SOLUSDT"))
}

func TestManagerReloadKeepsPreviousOnError(t *testing.T) {
	path := writeProfile(t, "leg_a: ETHUSDT\nleg_b: BTCUSDT\n")
	m, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, "ETHUSDT", m.Current().LegA)

	// 写坏文件后 reload 应保留旧 profile
	require.NoError(t, os.WriteFile(path, []byte("leg_a: [broken"), 0o644))
	m.reload()
	assert.Equal(t, "ETHUSDT", m.Current().LegA)

	// 修好后 reload 生效
	require.NoError(t, os.WriteFile(path, []byte("leg_a: SOLUSDT\nleg_b: BTCUSDT\n"), 0o644))
	m.reload()
	assert.Equal(t, "SOLUSDT", m.Current().LegA)
}
