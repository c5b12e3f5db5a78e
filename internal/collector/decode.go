package collector

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/LJTian/hotcache/internal/section"
)

var (
	utf8BOM   = []byte("\xef\xbb\xbf")
	jsonNull  = []byte("null")
	jsonTrue  = []byte("true")
	jsonFalse = []byte("false")
)

// decodePayload 先按 JSON 直接解析；失败时再尝试剥掉 JSONP 包裹（callback({...})）
func decodePayload(body []byte, v any) error {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	if inner, ok := unwrapJSONP(body); ok {
		if json.Unmarshal(inner, v) == nil {
			return nil
		}
	}
	return err
}

func unwrapJSONP(body []byte) ([]byte, bool) {
	open := bytes.IndexByte(body, '(')
	end := bytes.LastIndexByte(body, ')')
	if open <= 0 || end <= open {
		return nil, false
	}
	name := bytes.TrimSpace(body[:open])
	if len(name) == 0 {
		return nil, false
	}
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '_', ch == '$', ch == '.':
		default:
			return nil, false
		}
	}
	return body[open+1 : end], true
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, jsonNull)
}

// decodeObject 解析可选的子对象；缺失或形状不符时返回 false
func decodeObject(raw json.RawMessage, v any) bool {
	if isAbsent(raw) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// decodeList 解析可选的列表字段；字段缺失或不是数组时返回 false。
// 元素逐个解析，null 或形状不符的元素被跳过，不影响其余元素。
func decodeList[T any](raw json.RawMessage) ([]T, bool) {
	if isAbsent(raw) {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		if isAbsent(el) {
			continue
		}
		var v T
		if err := json.Unmarshal(el, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, true
}

// flexString 宽松的字符串字段：接受字符串、数字与布尔值，对象和数组视为空
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
	case '{', '[':
		*s = ""
	default:
		*s = flexString(b)
	}
	return nil
}

func str(s *flexString) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// putString 仅在上游给出该字段时写入，缺失字段不输出
func putString(rec section.Record, key string, s *flexString) {
	if s != nil {
		rec[key] = string(*s)
	}
}

// putRaw 原样透传上游字段（保留其 JSON 类型），缺失字段不输出
func putRaw(rec section.Record, key string, raw json.RawMessage) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	rec[key] = v
}

// looseNumber 数值转换：数字、数字字符串、布尔值与 null 可转换，其余视为非数值
func looseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return 0, false
	case bytes.Equal(raw, jsonNull), bytes.Equal(raw, jsonFalse):
		return 0, true
	case bytes.Equal(raw, jsonTrue):
		return 1, true
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, true
		}
	} else if raw[0] == '{' || raw[0] == '[' {
		return 0, false
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numberOrNil 非数值与 0 均输出 null
func numberOrNil(raw json.RawMessage) any {
	f, ok := looseNumber(raw)
	if !ok || f == 0 {
		return nil
	}
	return f
}

// truthy 按“是否有值”判断：缺失、null、false、0、空串为假
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if isAbsent(raw) || bytes.Equal(raw, jsonFalse) {
		return false
	}
	switch raw[0] {
	case '"':
		var s string
		return json.Unmarshal(raw, &s) == nil && s != ""
	case '{', '[':
		return true
	}
	f, ok := looseNumber(raw)
	return ok && f != 0
}
