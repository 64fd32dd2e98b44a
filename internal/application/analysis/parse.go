package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"thumbnail-ai-api/internal/domain/entity"
)

var (
	errEmptyResponse = errors.New("empty analysis response")
	errNoTitles      = errors.New("no titles in analysis response")
)

// stripFences 去掉 ```json / ``` 代码块标记
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSON 从模型输出中截取第一个 JSON 值（对象或数组）
// 模型可能在 JSON 前后夹杂说明文字
func extractJSON(s string) string {
	raw := strings.TrimSpace(s)
	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')

	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndexByte(raw, '}')
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndexByte(raw, ']')
	}
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// decodeFirst 解码第一个 JSON 值，忽略其后的多余内容
func decodeFirst(text string, v any) error {
	raw := extractJSON(stripFences(text))
	if raw == "" {
		return errEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode analysis json: %w", err)
	}
	return nil
}

// ParseTitles 解析标题建议，空列表视为解析失败
func ParseTitles(text string) ([]string, error) {
	var raw []string
	if err := decodeFirst(text, &raw); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return nil, errNoTitles
	}
	return titles, nil
}

// ParseVerdict 解析 CTR 对比结论
func ParseVerdict(text string) (*entity.CTRVerdict, error) {
	var v entity.CTRVerdict
	if err := decodeFirst(text, &v); err != nil {
		return nil, err
	}
	if v.Winner != 1 && v.Winner != 2 {
		return nil, fmt.Errorf("winner must be 1 or 2, got %d", v.Winner)
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return nil, errors.New("missing reasoning")
	}
	if v.Comparison == nil {
		return nil, errors.New("missing comparison")
	}
	return &v, nil
}
