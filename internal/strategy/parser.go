package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"pairloop/internal/decision"
	"pairloop/internal/pkg/jsonutil"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// 中文说明：
// 模型回复解析器。支持两种格式：
//  1) 前缀行：LONG: <symbol> / SHORT: <symbol> / REASON: <text>
//  2) JSON（可带 ```json 围栏）：{"long": "...", "short": "...", "reason": "..."}
// 两种都解析不出或两腿非法时返回错误，由上层走降级链。

var replySchema = jsonschema.MustCompileString("pair_reply.json", `{
	"type": "object",
	"required": ["long", "short"],
	"properties": {
		"long":   {"type": "string", "minLength": 1},
		"short":  {"type": "string", "minLength": 1},
		"reason": {"type": "string"}
	}
}`)

// ParseReply 从模型原始回复中提取做多/做空腿。
// legA/legB 用于校验：解析出的两腿必须恰好覆盖配对的两条腿。
func ParseReply(raw, legA, legB string) (*decision.PairChoice, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	choice, err := parsePrefixLines(raw)
	if err != nil {
		choice, err = parseJSONReply(raw)
	}
	if err != nil {
		return nil, err
	}
	if err := validatePair(choice, legA, legB); err != nil {
		return nil, err
	}
	choice.Source = "llm"
	return choice, nil
}

func parsePrefixLines(raw string) (*decision.PairChoice, error) {
	var c decision.PairChoice
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "LONG:"):
			c.Long = cleanSymbolToken(line[len("LONG:"):])
		case strings.HasPrefix(upper, "SHORT:"):
			c.Short = cleanSymbolToken(line[len("SHORT:"):])
		case strings.HasPrefix(upper, "REASON:"):
			c.Reason = strings.TrimSpace(line[len("REASON:"):])
		}
	}
	if c.Long == "" || c.Short == "" {
		return nil, fmt.Errorf("no LONG/SHORT prefix lines found")
	}
	return &c, nil
}

func parseJSONReply(raw string) (*decision.PairChoice, error) {
	payload, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in reply")
	}
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("reply JSON invalid: %w", err)
	}
	if err := replySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("reply JSON shape invalid: %w", err)
	}
	return &decision.PairChoice{
		Long:   cleanSymbolToken(gjson.Get(payload, "long").String()),
		Short:  cleanSymbolToken(gjson.Get(payload, "short").String()),
		Reason: strings.TrimSpace(gjson.Get(payload, "reason").String()),
	}, nil
}

func validatePair(c *decision.PairChoice, legA, legB string) error {
	legA = strings.ToUpper(strings.TrimSpace(legA))
	legB = strings.ToUpper(strings.TrimSpace(legB))
	if c.Long == c.Short {
		return fmt.Errorf("model picked the same leg for both sides: %s", c.Long)
	}
	valid := (c.Long == legA && c.Short == legB) || (c.Long == legB && c.Short == legA)
	if !valid {
		return fmt.Errorf("model reply legs %s/%s do not match pair %s/%s", c.Long, c.Short, legA, legB)
	}
	return nil
}

// cleanSymbolToken 去掉引号、反引号与多余标点，统一为大写。
func cleanSymbolToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`*.,;")
	return strings.ToUpper(strings.TrimSpace(s))
}
