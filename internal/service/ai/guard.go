package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
)

// Collaborator produces the soul's reply for a turn. It never fails: any
// backend problem is absorbed into the fallback payload.
type Collaborator interface {
	Generate(ctx context.Context, history []chat.Turn, text string) SoulResponse
}

// Guard wraps a Backend with validation, retry and the fallback policy.
type Guard struct {
	backend    Backend
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// Option customises a Guard.
type Option func(*Guard)

// WithMaxRetries sets how many times a transient backend error is retried.
func WithMaxRetries(n uint64) Option {
	return func(g *Guard) { g.maxRetries = n }
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(g *Guard) { g.newBackOff = newBackOff }
}

// WithLogger sets the logger used to report absorbed failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard builds a Guard around backend. A nil backend behaves as Unavailable.
func NewGuard(backend Backend, opts ...Option) *Guard {
	if backend == nil {
		backend = Unavailable{}
	}
	g := &Guard{
		backend:    backend,
		maxRetries: 1,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Collaborator.
func (g *Guard) Generate(ctx context.Context, history []chat.Turn, text string) (reply SoulResponse) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Msg("collaborator panicked, using fallback")
			reply = Fallback()
		}
	}()

	reply, err := g.complete(ctx, history, text)
	if err != nil {
		evt := g.logger.Warn()
		if errors.Is(err, ErrUnavailable) {
			evt = g.logger.Debug()
		}
		evt.Err(err).Msg("collaborator failed, using fallback")
		return Fallback()
	}
	return reply
}

func (g *Guard) complete(ctx context.Context, history []chat.Turn, text string) (SoulResponse, error) {
	var reply SoulResponse
	attempt := 0

	operation := func() error {
		attempt++
		raw, err := g.backend.Complete(ctx, history, text)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			g.logger.Debug().Err(err).Int("attempt", attempt).Msg("collaborator call failed")
			return err
		}

		parsed, err := ParseReply(raw)
		if err != nil {
			return backoff.Permanent(err)
		}
		reply = parsed
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), g.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return SoulResponse{}, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return reply, nil
}
