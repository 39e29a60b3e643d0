package voice

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/event"
	"github.com/zhouzirui/motion-soul/backend/internal/service/speech"
)

// Synthesizer is the server-side TTS engine behind Cloud.
type Synthesizer interface {
	Voices() []string
	Synthesize(ctx context.Context, req speech.Request) (*speech.Result, error)
}

// Cloud 在服务端合成音频并以 base64 发布到事件总线，按音频时长上报结束。
type Cloud struct {
	sessionID string
	bus       *event.Bus
	synth     Synthesizer
	logger    zerolog.Logger
	after     func(time.Duration) <-chan time.Time

	mu       sync.Mutex
	listener Listener
	cancel   context.CancelFunc
}

// NewCloud creates a cloud device for sessionID.
func NewCloud(sessionID string, bus *event.Bus, synth Synthesizer, logger zerolog.Logger) *Cloud {
	return &Cloud{
		sessionID: sessionID,
		bus:       bus,
		synth:     synth,
		logger:    logger,
		after:     time.After,
	}
}

// Voices implements Device.
func (c *Cloud) Voices() []Voice {
	names := c.synth.Voices()
	voices := make([]Voice, 0, len(names))
	for i, name := range names {
		voices = append(voices, Voice{Name: name, Default: i == 0})
	}
	return voices
}

// Attach implements Device.
func (c *Cloud) Attach(l Listener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// Speak implements Device. Synthesis runs in the background and outlives ctx's
// cancellation; only Cancel or a newer utterance stops it.
func (c *Cloud) Speak(ctx context.Context, u Utterance) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, u)
	return nil
}

// Cancel implements Device.
func (c *Cloud) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.bus.Publish(event.New(c.sessionID, event.TypeSpeech, Command{Action: ActionCancel}))
	}
}

func (c *Cloud) run(ctx context.Context, u Utterance) {
	result, err := c.synth.Synthesize(ctx, speech.Request{
		Text:    u.Text,
		Voice:   u.Voice.Name,
		Rate:    u.Params.Rate,
		Emotion: u.Emotion,
		UserID:  c.sessionID,
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("voice", u.Voice.Name).Msg("cloud synthesis failed")
		c.report(u.ID, StatusError)
		return
	}

	duration := result.Duration
	if duration <= 0 {
		duration = EstimateDuration(u.Text, u.Params.Rate)
	}
	finished := c.after(duration)

	c.bus.Publish(event.New(c.sessionID, event.TypeSpeech, Command{
		Action:      ActionAudio,
		UtteranceID: u.ID,
		Text:        u.Text,
		Voice:       result.Voice,
		Rate:        u.Params.Rate,
		Audio:       base64.StdEncoding.EncodeToString(result.Audio),
		Format:      result.Format,
		DurationMs:  duration.Milliseconds(),
	}))
	c.report(u.ID, StatusStart)

	select {
	case <-ctx.Done():
	case <-finished:
		c.report(u.ID, StatusEnd)
	}
}

func (c *Cloud) report(id string, status Status) {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l != nil {
		l.Report(id, status)
	}
}

// EstimateDuration approximates speaking time when the engine reports none:
// 150 words per minute at rate 1.0, never shorter than a second.
func EstimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / rate * float64(400*time.Millisecond))
	if d < time.Second {
		return time.Second
	}
	return d
}
