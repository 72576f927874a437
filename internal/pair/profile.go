package pair

import (
	"fmt"
	"os"
	"strings"
	"time"

	"pairloop/internal/scheduler"

	"gopkg.in/yaml.v3"
)

// Profile 描述一个配对交易组合：两条腿、节奏与复盘参数。
type Profile struct {
	Name             string `yaml:"name"`
	LegA             string `yaml:"leg_a"`
	LegB             string `yaml:"leg_b"`
	DefaultLong      string `yaml:"default_long"`
	HoldTime         string `yaml:"hold_time"`
	DecisionInterval string `yaml:"decision_interval"`
	KlineInterval    string `yaml:"kline_interval"`
	KlineLimit       int    `yaml:"kline_limit"`
	ReviewInterval   int    `yaml:"review_interval"`
	RollingWindow    int    `yaml:"rolling_window"`

	holdTime         time.Duration
	decisionInterval time.Duration
}

// LoadProfile 读取并归一化 pair profile 文件。
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pair profile failed: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pair profile failed: %w", err)
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	p.LegA = strings.ToUpper(strings.TrimSpace(p.LegA))
	p.LegB = strings.ToUpper(strings.TrimSpace(p.LegB))
	p.DefaultLong = strings.ToUpper(strings.TrimSpace(p.DefaultLong))
	if p.Name == "" {
		p.Name = "pair"
	}
	if p.LegA == "" || p.LegB == "" {
		return fmt.Errorf("pair profile requires leg_a and leg_b")
	}
	if p.LegA == p.LegB {
		return fmt.Errorf("pair legs must differ, got %s twice", p.LegA)
	}
	if p.DefaultLong == "" {
		p.DefaultLong = p.LegA
	}
	if p.DefaultLong != p.LegA && p.DefaultLong != p.LegB {
		return fmt.Errorf("default_long %s is not one of the pair legs", p.DefaultLong)
	}
	if strings.TrimSpace(p.HoldTime) == "" {
		p.HoldTime = "4h"
	}
	if strings.TrimSpace(p.DecisionInterval) == "" {
		p.DecisionInterval = "15m"
	}
	if strings.TrimSpace(p.KlineInterval) == "" {
		p.KlineInterval = "1h"
	}
	if p.KlineLimit <= 0 {
		p.KlineLimit = 120
	}
	if p.ReviewInterval <= 0 {
		p.ReviewInterval = 5
	}
	if p.RollingWindow <= 0 {
		p.RollingWindow = 10
	}
	hold, ok := scheduler.ParseIntervalDuration(p.HoldTime)
	if !ok {
		return fmt.Errorf("invalid hold_time %q", p.HoldTime)
	}
	dec, ok := scheduler.ParseIntervalDuration(p.DecisionInterval)
	if !ok {
		return fmt.Errorf("invalid decision_interval %q", p.DecisionInterval)
	}
	p.holdTime = hold
	p.decisionInterval = dec
	return nil
}

func (p *Profile) HoldDuration() time.Duration     { return p.holdTime }
func (p *Profile) DecisionDuration() time.Duration { return p.decisionInterval }

// OtherLeg 返回配对中的另一条腿；symbol 不属于该 pair 时返回空串。
func (p *Profile) OtherLeg(symbol string) string {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case p.LegA:
		return p.LegB
	case p.LegB:
		return p.LegA
	default:
		return ""
	}
}

// Contains 判断 symbol 是否为该 pair 的其中一条腿。
func (p *Profile) Contains(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return s == p.LegA || s == p.LegB
}
