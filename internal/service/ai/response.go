package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

var (
	// ErrUnavailable is returned by backends that have no credentials.
	ErrUnavailable = errors.New("ai collaborator unavailable")
	// ErrMalformedReply marks replies that fail validation.
	ErrMalformedReply = errors.New("malformed collaborator reply")
)

const (
	fallbackThought  = "ERR: CONNECTION_LOST. RECALIBRATING..."
	fallbackResponse = "I'm having trouble connecting to my core processes right now."
)

// SoulResponse 是协作方的一次结构化回复。
type SoulResponse struct {
	Emotion        emotion.Tag `json:"emotion"`
	ThoughtProcess string      `json:"thought_process"`
	Response       string      `json:"response"`
}

// Fallback returns the fixed reply used whenever the collaborator fails.
func Fallback() SoulResponse {
	return SoulResponse{
		Emotion:        emotion.Neutral,
		ThoughtProcess: fallbackThought,
		Response:       fallbackResponse,
	}
}

// IsFallback reports whether r is the fallback payload.
func (r SoulResponse) IsFallback() bool {
	return r == Fallback()
}

type replyPayload struct {
	Emotion        string `json:"emotion"`
	ThoughtProcess string `json:"thought_process"`
	Response       string `json:"response"`
}

// ParseReply 解析模型返回的 JSON，并将情绪限制在五个可表达标签内。
func ParseReply(content string) (SoulResponse, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return SoulResponse{}, fmt.Errorf("%w: missing json object", ErrMalformedReply)
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return SoulResponse{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	tag, ok := emotion.ParseExpressible(payload.Emotion)
	if !ok {
		return SoulResponse{}, fmt.Errorf("%w: unsupported emotion %q", ErrMalformedReply, payload.Emotion)
	}

	response := strings.TrimSpace(payload.Response)
	if response == "" {
		return SoulResponse{}, fmt.Errorf("%w: empty response", ErrMalformedReply)
	}

	return SoulResponse{
		Emotion:        tag,
		ThoughtProcess: strings.TrimSpace(payload.ThoughtProcess),
		Response:       response,
	}, nil
}
