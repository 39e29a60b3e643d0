package voice

// Action 标识语音事件负载的种类。
type Action string

const (
	ActionSpeak  Action = "speak"
	ActionCancel Action = "cancel"
	ActionAudio  Action = "audio"
)

// Command 是发布到会话事件总线上的语音事件负载。
type Command struct {
	Action      Action  `json:"action"`
	UtteranceID string  `json:"utteranceId,omitempty"`
	Text        string  `json:"text,omitempty"`
	Voice       string  `json:"voice,omitempty"`
	Pitch       float64 `json:"pitch,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	Audio       string  `json:"audio,omitempty"`
	Format      string  `json:"format,omitempty"`
	DurationMs  int64   `json:"durationMs,omitempty"`
}
