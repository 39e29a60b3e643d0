package speech

import (
	"strings"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

const defaultEmotionScale = 4

var emotionLabels = map[emotion.Tag]string{
	emotion.Joy:      "happy",
	emotion.Sadness:  "sad",
	emotion.Anger:    "angry",
	emotion.Surprise: "surprised",
}

var emotionVoiceWhitelist = map[string]struct{}{
	"en_female_candice_emo_v2_mars_bigtts": {},
	"en_female_skye_emo_v2_mars_bigtts":    {},
	"en_male_glen_emo_v2_mars_bigtts":      {},
	"en_male_sylus_emo_v2_mars_bigtts":     {},
	"en_male_corey_emo_v2_mars_bigtts":     {},
}

// EmotionParameters 返回情绪音色可用的 TTS 情绪参数。非情绪音色或 Neutral 时不启用。
func EmotionParameters(voice string, tag emotion.Tag) (enable bool, label string, scale float32) {
	mapped, ok := emotionLabels[tag]
	if !ok || !supportsEmotion(voice) {
		return false, "", 0
	}
	return true, mapped, defaultEmotionScale
}

func supportsEmotion(voice string) bool {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if normalized == "" {
		return false
	}
	if _, ok := emotionVoiceWhitelist[normalized]; ok {
		return true
	}
	return strings.Contains(normalized, "_emo")
}
