package ai

import (
	"context"

	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
)

// Backend performs one raw completion and returns the model's JSON text.
type Backend interface {
	Complete(ctx context.Context, history []chat.Turn, text string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, history []chat.Turn, text string) (string, error)

// Complete implements Backend.
func (f BackendFunc) Complete(ctx context.Context, history []chat.Turn, text string) (string, error) {
	return f(ctx, history, text)
}

// Unavailable is the backend used when no credentials are configured.
type Unavailable struct{}

// Complete always fails with ErrUnavailable.
func (Unavailable) Complete(context.Context, []chat.Turn, string) (string, error) {
	return "", ErrUnavailable
}
