package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4H", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 2h ", 2 * time.Hour, true},
		{"", 0, false},
		{"h", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"15x", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntervalDuration(tc.in)
		assert.Equal(t, tc.ok, ok, "input=%q", tc.in)
		assert.Equal(t, tc.want, got, "input=%q", tc.in)
	}
}

func TestNextFixedTimeAfterDoesNotDrift(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := 15 * time.Minute

	// 刚过第一个 tick 一点点，下一个 tick 应锚定在 00:30
	now := anchor.Add(16 * time.Minute)
	next := nextFixedTimeAfter(anchor, interval, now)
	assert.Equal(t, anchor.Add(30*time.Minute), next)

	// 任务拖了很久也只对齐到下一个网格点
	now = anchor.Add(100 * time.Minute)
	next = nextFixedTimeAfter(anchor, interval, now)
	assert.Equal(t, anchor.Add(105*time.Minute), next)

	// now 在 anchor 之前：返回 anchor 本身
	next = nextFixedTimeAfter(anchor, interval, anchor.Add(-time.Minute))
	assert.Equal(t, anchor, next)
}
