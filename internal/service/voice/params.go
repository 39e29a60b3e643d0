// Package voice turns the soul's replies into speech on a pluggable device.
package voice

import (
	"strings"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

// Params 是一次发声的音高与语速，1.0 为原始值。
type Params struct {
	Pitch float64 `json:"pitch"`
	Rate  float64 `json:"rate"`
}

var paramsByEmotion = map[emotion.Tag]Params{
	emotion.Joy:      {Pitch: 1.2, Rate: 1.1},
	emotion.Sadness:  {Pitch: 0.8, Rate: 0.8},
	emotion.Anger:    {Pitch: 0.9, Rate: 1.2},
	emotion.Surprise: {Pitch: 1.3, Rate: 1.1},
}

// ParamsFor returns the prosody for tag; Neutral and anything else speak at 1.0/1.0.
func ParamsFor(tag emotion.Tag) Params {
	if p, ok := paramsByEmotion[tag]; ok {
		return p
	}
	return Params{Pitch: 1.0, Rate: 1.0}
}

// Voice 设备可用的一个音色。
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// Select 按偏好列表（名称子串匹配）依次挑选音色，都不匹配时取第一个。
func Select(voices []Voice, preferred []string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, want := range preferred {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		for _, v := range voices {
			if strings.Contains(v.Name, want) {
				return v, true
			}
		}
	}
	return voices[0], true
}
