// Package entity 定义领域实体
package entity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// 批量生成数量上下限
const (
	MinImageCount = 1
	MaxImageCount = 4
)

// MaxReferenceImages 单次请求最多携带的参考图数量（4 + 1 + 3 三个上传槽位）
const MaxReferenceImages = 8

// MaxPromptLength 提示词长度上限（按字符计）
const MaxPromptLength = 1000

// DefaultRegeneratePrompt 单图重绘时提示词为空的兜底文案
const DefaultRegeneratePrompt = "YouTube thumbnail"

// ErrInvalidImage 图片载荷无法解码
var ErrInvalidImage = errors.New("invalid image payload")

// AspectRatio 画面比例
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
	AspectRatioSquare    AspectRatio = "1:1"
)

// ParseAspectRatio 解析画面比例，缺省或无法识别时回落到 16:9
func ParseAspectRatio(s string) AspectRatio {
	switch AspectRatio(strings.TrimSpace(s)) {
	case AspectRatioPortrait:
		return AspectRatioPortrait
	case AspectRatioSquare:
		return AspectRatioSquare
	default:
		return AspectRatioLandscape
	}
}

// Description 返回拼接进提示词的比例描述
func (a AspectRatio) Description() string {
	switch a {
	case AspectRatioPortrait:
		return "9:16 vertical ratio (Shorts)"
	case AspectRatioSquare:
		return "1:1 square ratio"
	default:
		return "16:9 horizontal ratio"
	}
}

// GeneratedImage 模型返回的图片，返回后视为不可变
type GeneratedImage struct {
	Data      []byte `json:"data"`
	MediaType string `json:"mediaType"`
}

// IsImage 是否为 image/* 类型
func (g GeneratedImage) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(g.MediaType)), "image/")
}

// DataURL 编码为 data URL
func (g GeneratedImage) DataURL() string {
	return "data:" + g.MediaType + ";base64," + base64.StdEncoding.EncodeToString(g.Data)
}

// DecodeImage 解析 data URL 或裸 base64 字符串
// 媒体类型优先取 data URL 声明，否则按内容嗅探
func DecodeImage(s string) (GeneratedImage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GeneratedImage{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	var mediaType, payload string
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s, ",")
		if !ok {
			return GeneratedImage{}, fmt.Errorf("%w: malformed data url", ErrInvalidImage)
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return GeneratedImage{}, fmt.Errorf("%w: data url must be base64 encoded", ErrInvalidImage)
		}
		mediaType = strings.TrimSuffix(meta, ";base64")
		payload = body
	} else {
		payload = s
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return GeneratedImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return GeneratedImage{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
		// 去掉 charset 等参数
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
	}

	return GeneratedImage{Data: data, MediaType: mediaType}, nil
}

// CloneImages 浅拷贝图片列表（图片本身不可变）
func CloneImages(images []GeneratedImage) []GeneratedImage {
	if images == nil {
		return nil
	}
	out := make([]GeneratedImage, len(images))
	copy(out, images)
	return out
}

// GenerationRequest 一次批量生成请求
type GenerationRequest struct {
	Prompt          string
	ReferenceImages []GeneratedImage
	Count           int
	AspectRatio     AspectRatio
}

// NewGenerationRequest 创建生成请求，数量与比例在此归一化
func NewGenerationRequest(prompt string, refs []GeneratedImage, count any, ratio string) GenerationRequest {
	return GenerationRequest{
		Prompt:          prompt,
		ReferenceImages: refs,
		Count:           ClampCount(count),
		AspectRatio:     ParseAspectRatio(ratio),
	}
}

// ClampCount 将任意输入归一化到 [1,4]
// 缺省、非数字与 NaN 视为 1；小数向上取整后再截断
func ClampCount(v any) int {
	var f float64
	switch n := v.(type) {
	case nil:
		return MinImageCount
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return MinImageCount
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return MinImageCount
		}
		f = parsed
	default:
		return MinImageCount
	}

	if math.IsNaN(f) {
		return MinImageCount
	}
	f = math.Ceil(f)
	if f < MinImageCount {
		return MinImageCount
	}
	if f > MaxImageCount {
		return MaxImageCount
	}
	return int(f)
}
