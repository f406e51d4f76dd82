// Package node 提供处理模型输出的通用节点函数
package node

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractJSONObject 截取模型输出中的第一个 JSON 对象或数组。
// 模型常在 JSON 前后夹杂说明文字或 ``` 代码块围栏。
func ExtractJSONObject(s string) string {
	raw := StripCodeFence(s)
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// DecodeJSON 从模型输出中提取并解析 JSON
func DecodeJSON(s string, v any) error {
	raw := ExtractJSONObject(s)
	if raw == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse model json: %w", err)
	}
	return nil
}

// StripCodeFence 去掉首尾的 markdown 代码块围栏
func StripCodeFence(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if i := strings.Index(raw, "\n"); i >= 0 {
		raw = raw[i+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// CleanText 规整纯文本输出：去掉围栏与包裹的引号
func CleanText(s string) string {
	out := StripCodeFence(s)
	for _, q := range []string{`"`, "'", "“"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if len(out) >= 2 && strings.HasPrefix(out, q) && strings.HasSuffix(out, closing) {
			out = strings.TrimSpace(out[len(q) : len(out)-len(closing)])
		}
	}
	return out
}

// IsResponseFormatUnsupportedError 判断服务商是否拒绝了 response_format 参数
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"),
		strings.Contains(msg, "json_schema"),
		strings.Contains(msg, "response_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}

// TruncateByRunes 按字符数截断
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}
