package emotion

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Tag 表示驱动动画与语音的情绪标签。
type Tag string

const (
	Neutral  Tag = "Neutral"
	Joy      Tag = "Joy"
	Sadness  Tag = "Sadness"
	Anger    Tag = "Anger"
	Surprise Tag = "Surprise"
	// Thinking 是本地的处理中状态，AI 协作方永远不能返回它。
	Thinking Tag = "Thinking"
)

var allTags = []Tag{Neutral, Joy, Sadness, Anger, Surprise, Thinking}

var expressibleTags = []Tag{Neutral, Joy, Sadness, Anger, Surprise}

var paletteHex = map[Tag]string{
	Neutral:  "#38bdf8",
	Joy:      "#fbbf24",
	Sadness:  "#818cf8",
	Anger:    "#f87171",
	Surprise: "#e879f9",
	Thinking: "#e2e8f0",
}

var palette = buildPalette()

func buildPalette() map[Tag]colorful.Color {
	colors := make(map[Tag]colorful.Color, len(paletteHex))
	for tag, hex := range paletteHex {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic("emotion: invalid palette entry " + hex)
		}
		colors[tag] = c
	}
	return colors
}

// All 返回全部六个情绪标签，顺序固定。
func All() []Tag {
	return append([]Tag(nil), allTags...)
}

// Expressible returns the five affect tags the AI collaborator may emit.
func Expressible() []Tag {
	return append([]Tag(nil), expressibleTags...)
}

// Palette 返回情绪对应的显示颜色。未知标签按 Neutral 处理，查询永不失败。
func Palette(tag Tag) colorful.Color {
	if c, ok := palette[tag]; ok {
		return c
	}
	return palette[Neutral]
}

// Hex returns the palette color as "#rrggbb".
func Hex(tag Tag) string {
	if hex, ok := paletteHex[tag]; ok {
		return hex
	}
	return paletteHex[Neutral]
}

// Parse 解析任意六个标签之一，大小写不敏感。
func Parse(raw string) (Tag, bool) {
	return match(raw, allTags)
}

// ParseExpressible only accepts the five affect tags; Thinking is rejected.
func ParseExpressible(raw string) (Tag, bool) {
	return match(raw, expressibleTags)
}

// Expressible 报告标签是否属于可表达的五种情绪。
func (t Tag) Expressible() bool {
	_, ok := ParseExpressible(string(t))
	return ok
}

func (t Tag) String() string {
	return string(t)
}

func match(raw string, candidates []Tag) (Tag, bool) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", false
	}
	for _, tag := range candidates {
		if strings.EqualFold(normalized, string(tag)) {
			return tag, true
		}
	}
	return "", false
}
