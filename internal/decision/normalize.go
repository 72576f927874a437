package decision

import (
	"fmt"
	"strings"
)

// NormalizeAction 把模型可能输出的同义动作折叠成标准枚举；无法识别返回原样小写。
func NormalizeAction(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	switch a {
	case "open_long", "long", "buy":
		return ActionOpenLong
	case "open_short", "short", "sell":
		return ActionOpenShort
	case "close_long":
		return ActionCloseLong
	case "close_short":
		return ActionCloseShort
	default:
		return a
	}
}

// Validate 检查一条决策是否可执行。
func Validate(d *Decision) error {
	if d == nil {
		return fmt.Errorf("decision is nil")
	}
	if strings.TrimSpace(d.Symbol) == "" {
		return fmt.Errorf("decision missing symbol")
	}
	switch d.Action {
	case ActionOpenLong, ActionOpenShort:
		if d.PositionSizeUSD <= 0 {
			return fmt.Errorf("open decision for %s missing position size", d.Symbol)
		}
	case ActionCloseLong, ActionCloseShort:
		// 平仓不要求 size：按整腿退出
	default:
		return fmt.Errorf("unknown action %q for %s", d.Action, d.Symbol)
	}
	return nil
}
