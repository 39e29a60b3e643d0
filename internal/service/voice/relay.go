package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/motion-soul/backend/internal/event"
)

// ErrNoAudience is returned when no client is subscribed to perform speech.
var ErrNoAudience = errors.New("no client connected to perform speech")

// Relay 把发声委托给浏览器的语音合成：命令经事件总线发往 WebSocket 客户端，
// 客户端回报音色列表和 start/end/error 状态。
type Relay struct {
	sessionID string
	bus       *event.Bus

	mu       sync.RWMutex
	voices   []Voice
	listener Listener
}

// NewRelay creates a relay publishing on bus for sessionID.
func NewRelay(sessionID string, bus *event.Bus) *Relay {
	return &Relay{sessionID: sessionID, bus: bus}
}

// SetVoices records the voice list reported by the client.
func (r *Relay) SetVoices(voices []Voice) {
	r.mu.Lock()
	r.voices = append([]Voice(nil), voices...)
	r.mu.Unlock()
}

// Voices implements Device.
func (r *Relay) Voices() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Voice(nil), r.voices...)
}

// Attach implements Device.
func (r *Relay) Attach(l Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Speak implements Device.
func (r *Relay) Speak(_ context.Context, u Utterance) error {
	delivered := r.bus.Publish(event.New(r.sessionID, event.TypeSpeech, Command{
		Action:      ActionSpeak,
		UtteranceID: u.ID,
		Text:        u.Text,
		Voice:       u.Voice.Name,
		Pitch:       u.Params.Pitch,
		Rate:        u.Params.Rate,
	}))
	if delivered == 0 {
		return ErrNoAudience
	}
	return nil
}

// Cancel implements Device.
func (r *Relay) Cancel() {
	r.bus.Publish(event.New(r.sessionID, event.TypeSpeech, Command{Action: ActionCancel}))
}

// HandleStatus forwards a client status report to the listener.
func (r *Relay) HandleStatus(utteranceID string, status Status) {
	r.mu.RLock()
	l := r.listener
	r.mu.RUnlock()
	if l != nil {
		l.Report(utteranceID, status)
	}
}
