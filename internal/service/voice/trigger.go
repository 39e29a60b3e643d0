package voice

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

// Status 设备上报的发声状态。
type Status string

const (
	StatusStart Status = "start"
	StatusEnd   Status = "end"
	StatusError Status = "error"
)

// Utterance 是交给设备的一次发声。
type Utterance struct {
	ID      string
	Text    string
	Voice   Voice
	Params  Params
	Emotion emotion.Tag
}

// Listener receives status reports from a device.
type Listener interface {
	Report(utteranceID string, status Status)
}

// Device 是语音合成后端。Speak 只负责开始发声，进度通过 Listener 上报。
type Device interface {
	Voices() []Voice
	Speak(ctx context.Context, u Utterance) error
	Cancel()
	Attach(l Listener)
}

// SpeakingSetter is the conversation state the trigger drives.
type SpeakingSetter interface {
	SetSpeaking(speaking bool)
}

// Trigger 把回复文本与情绪交给设备，并把设备状态映射为 speaking 标志。
// 只有当前发声的事件会生效，被抢占的发声上报的事件被忽略。
type Trigger struct {
	device    Device
	preferred []string
	target    SpeakingSetter
	logger    zerolog.Logger

	mu      sync.Mutex
	current string
}

// NewTrigger wires device to target. A nil device makes Speak a no-op.
func NewTrigger(device Device, preferred []string, target SpeakingSetter, logger zerolog.Logger) *Trigger {
	t := &Trigger{
		device:    device,
		preferred: preferred,
		target:    target,
		logger:    logger,
	}
	if device != nil {
		device.Attach(t)
	}
	return t
}

// Speak starts speaking text with the prosody for tag, preempting any
// utterance in progress.
func (t *Trigger) Speak(ctx context.Context, text string, tag emotion.Tag) {
	if t.device == nil || strings.TrimSpace(text) == "" {
		return
	}

	voice, ok := Select(t.device.Voices(), t.preferred)
	if !ok {
		return
	}

	t.device.Cancel()

	id := uuid.NewString()
	t.mu.Lock()
	t.current = id
	t.mu.Unlock()

	u := Utterance{
		ID:      id,
		Text:    text,
		Voice:   voice,
		Params:  ParamsFor(tag),
		Emotion: tag,
	}
	if err := t.device.Speak(ctx, u); err != nil {
		t.logger.Warn().Err(err).Str("voice", voice.Name).Msg("speech failed to start")
		t.Report(id, StatusError)
	}
}

// Stop cancels the current utterance and clears speaking.
func (t *Trigger) Stop() {
	if t.device == nil {
		return
	}
	t.device.Cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != "" {
		t.current = ""
		t.target.SetSpeaking(false)
	}
}

// Report implements Listener.
func (t *Trigger) Report(utteranceID string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if utteranceID == "" || utteranceID != t.current {
		return
	}

	switch status {
	case StatusStart:
		t.target.SetSpeaking(true)
	case StatusEnd, StatusError:
		t.current = ""
		t.target.SetSpeaking(false)
	}
}
