package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/event"
	"github.com/zhouzirui/motion-soul/backend/internal/service/speech"
)

type statusLog struct {
	ch chan Status
}

func newStatusLog() *statusLog { return &statusLog{ch: make(chan Status, 8)} }

func (s *statusLog) Report(_ string, status Status) { s.ch <- status }

func (s *statusLog) next(t *testing.T) Status {
	t.Helper()
	select {
	case st := <-s.ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status")
		return ""
	}
}

func TestRelayPublishesSpeakCommand(t *testing.T) {
	bus := event.NewBus()
	events, cancel := bus.Subscribe(4)
	defer cancel()

	relay := NewRelay("s1", bus)
	relay.SetVoices([]Voice{{Name: "Samantha", Lang: "en-US"}})
	assert.Equal(t, "Samantha", relay.Voices()[0].Name)

	err := relay.Speak(context.Background(), Utterance{
		ID:     "u1",
		Text:   "Hello",
		Voice:  Voice{Name: "Samantha"},
		Params: ParamsFor(emotion.Surprise),
	})
	require.NoError(t, err)

	evt := <-events
	assert.Equal(t, event.TypeSpeech, evt.Type)
	cmd := evt.Data.(Command)
	assert.Equal(t, ActionSpeak, cmd.Action)
	assert.Equal(t, "u1", cmd.UtteranceID)
	assert.Equal(t, 1.3, cmd.Pitch)

	log := newStatusLog()
	relay.Attach(log)
	relay.HandleStatus("u1", StatusStart)
	assert.Equal(t, StatusStart, log.next(t))
}

func TestRelayWithoutAudience(t *testing.T) {
	relay := NewRelay("s1", event.NewBus())
	err := relay.Speak(context.Background(), Utterance{ID: "u1", Text: "hi"})
	assert.ErrorIs(t, err, ErrNoAudience)
}

type fakeSynth struct {
	result *speech.Result
	err    error
	got    chan speech.Request
}

func (f *fakeSynth) Voices() []string { return []string{"en_female_amy_jupiter_bigtts"} }

func (f *fakeSynth) Synthesize(_ context.Context, req speech.Request) (*speech.Result, error) {
	f.got <- req
	return f.result, f.err
}

func TestCloudPublishesAudioAndReportsEnd(t *testing.T) {
	bus := event.NewBus()
	events, cancel := bus.Subscribe(4)
	defer cancel()

	synth := &fakeSynth{
		result: &speech.Result{Audio: []byte("mp3"), Format: "mp3", Voice: "v", Duration: 1500 * time.Millisecond},
		got:    make(chan speech.Request, 1),
	}
	cloud := NewCloud("s1", bus, synth, zerolog.Nop())
	fired := make(chan time.Time, 1)
	var waited time.Duration
	cloud.after = func(d time.Duration) <-chan time.Time {
		waited = d
		return fired
	}
	log := newStatusLog()
	cloud.Attach(log)

	require.Len(t, cloud.Voices(), 1)
	require.NoError(t, cloud.Speak(context.Background(), Utterance{
		ID: "u1", Text: "I feel sad", Params: ParamsFor(emotion.Sadness), Emotion: emotion.Sadness,
	}))

	req := <-synth.got
	assert.Equal(t, 0.8, req.Rate)
	assert.Equal(t, emotion.Sadness, req.Emotion)

	assert.Equal(t, StatusStart, log.next(t))
	evt := <-events
	cmd := evt.Data.(Command)
	assert.Equal(t, ActionAudio, cmd.Action)
	assert.Equal(t, "bXAz", cmd.Audio)
	assert.Equal(t, int64(1500), cmd.DurationMs)
	assert.Equal(t, 1500*time.Millisecond, waited)

	fired <- time.Now()
	assert.Equal(t, StatusEnd, log.next(t))
}

func TestCloudReportsSynthesisError(t *testing.T) {
	synth := &fakeSynth{err: errors.New("quota"), got: make(chan speech.Request, 1)}
	cloud := NewCloud("s1", event.NewBus(), synth, zerolog.Nop())
	log := newStatusLog()
	cloud.Attach(log)

	require.NoError(t, cloud.Speak(context.Background(), Utterance{ID: "u1", Text: "hi"}))
	assert.Equal(t, StatusError, log.next(t))
}

func TestCloudCancelSuppressesEnd(t *testing.T) {
	synth := &fakeSynth{
		result: &speech.Result{Audio: []byte("a"), Duration: time.Hour},
		got:    make(chan speech.Request, 1),
	}
	cloud := NewCloud("s1", event.NewBus(), synth, zerolog.Nop())
	log := newStatusLog()
	cloud.Attach(log)

	require.NoError(t, cloud.Speak(context.Background(), Utterance{ID: "u1", Text: "hi"}))
	assert.Equal(t, StatusStart, log.next(t))

	cloud.Cancel()
	select {
	case st := <-log.ch:
		t.Fatalf("unexpected status after cancel: %s", st)
	case <-time.After(50 * time.Millisecond):
	}
}
