package animation

import (
	"context"
	"errors"
	"time"
)

// DefaultFPS is used when a non-positive frame rate is configured.
const DefaultFPS = 30

// Source supplies the current discrete state. Elapsed is filled in by the loop.
type Source interface {
	FrameInput() Input
}

// Sink receives every computed frame.
type Sink interface {
	Render(ctx context.Context, frame State) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, frame State) error

// Render implements Sink.
func (f SinkFunc) Render(ctx context.Context, frame State) error {
	return f(ctx, frame)
}

// Loop drives Next from a ticker until its context ends.
type Loop struct {
	fps int
	now func() time.Time
}

// NewLoop builds a Loop running at fps frames per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{fps: fps, now: time.Now}
}

// FPS returns the effective frame rate.
func (l *Loop) FPS() int {
	return l.fps
}

// Run renders frames until ctx is done or the sink fails. Elapsed time is
// wall-clock seconds since Run started. A cancelled context is not an error.
func (l *Loop) Run(ctx context.Context, source Source, sink Sink) error {
	if source == nil || sink == nil {
		return errors.New("animation: source and sink are required")
	}

	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	start := l.now()
	state := Initial()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			in := source.FrameInput()
			in.Elapsed = l.now().Sub(start).Seconds()
			state = Next(state, in)
			if err := sink.Render(ctx, state); err != nil {
				return err
			}
		}
	}
}
