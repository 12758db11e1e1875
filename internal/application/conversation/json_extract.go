package conversation

import (
	"encoding/json"
	"strings"
)

// extractJSONValue 从模型输出中截取第一个完整的 JSON 值（数组或对象）。
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块标记，需容错处理
func extractJSONValue(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	arrStart := strings.Index(raw, "[")
	objStart := strings.Index(raw, "{")
	start := -1
	end := -1
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		start = arrStart
		end = strings.LastIndex(raw, "]")
	case objStart >= 0:
		start = objStart
		end = strings.LastIndex(raw, "}")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	// 确保截取结果以 JSON 容器开头，否则返回原文交由调用方报错
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if tok, err := dec.Token(); err == nil {
		if d, ok := tok.(json.Delim); ok && (d == '[' || d == '{') {
			return raw
		}
	}
	return strings.TrimSpace(s)
}
