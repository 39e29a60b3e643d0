// Package soul orchestrates a conversation with the soul: it owns the message
// log, the discrete emotional state and short-term memory, and runs one turn
// at a time through the AI collaborator.
package soul

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/animation"
	"github.com/zhouzirui/motion-soul/backend/internal/event"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/model/memory"
	"github.com/zhouzirui/motion-soul/backend/internal/service/ai"
)

var (
	// ErrEmptyInput rejects blank submissions.
	ErrEmptyInput = errors.New("input is empty")
	// ErrTurnInFlight rejects submissions while a reply is pending.
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// DefaultTimeout bounds one collaborator call.
const DefaultTimeout = 30 * time.Second

type gate int

const (
	gateIdle gate = iota
	gateAwaitingResponse
)

// Speaker 接收回复文本与情绪并发声。
type Speaker interface {
	Speak(ctx context.Context, text string, tag emotion.Tag)
}

// Turn 是一次完成的回合。
type Turn struct {
	User    chat.Message `json:"user"`
	Reply   chat.Message `json:"reply"`
	Emotion emotion.Tag  `json:"emotion"`
	Thought string       `json:"thought"`
	Memory  memory.Core  `json:"memory"`
}

// Status 是 thinking/speaking 标志的快照。
type Status struct {
	Thinking bool `json:"thinking"`
	Speaking bool `json:"speaking"`
}

// Snapshot is a consistent copy of the conversation state.
type Snapshot struct {
	ID        string              `json:"id"`
	Blueprint blueprint.Blueprint `json:"blueprint"`
	CreatedAt time.Time           `json:"createdAt"`
	Emotion   emotion.Tag         `json:"emotion"`
	Color     string              `json:"color"`
	Thinking  bool                `json:"thinking"`
	Speaking  bool                `json:"speaking"`
	Thought   string              `json:"thought"`
	Memory    memory.Core         `json:"memory"`
	Messages  []chat.Message      `json:"messages"`
}

// Option customises a Conversation.
type Option func(*Conversation)

// WithTimeout sets the per-turn collaborator deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBus publishes state transitions on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Conversation) { c.bus = bus }
}

// WithLogger sets the conversation logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Conversation) { c.logger = logger }
}

// Conversation 是单个灵魂会话。所有共享字段由 mu 保护，协作方调用期间不持锁。
type Conversation struct {
	id           string
	blueprint    blueprint.Blueprint
	collaborator ai.Collaborator
	bus          *event.Bus
	timeout      time.Duration
	logger       zerolog.Logger
	createdAt    time.Time

	mu       sync.RWMutex
	gate     gate
	messages []chat.Message
	emotion  emotion.Tag
	thinking bool
	speaking bool
	thought  string
	memory   memory.Core
	speaker  Speaker
}

// New creates an idle conversation resting on Neutral.
func New(id string, bp blueprint.Blueprint, collaborator ai.Collaborator, opts ...Option) *Conversation {
	c := &Conversation{
		id:           id,
		blueprint:    bp,
		collaborator: collaborator,
		timeout:      DefaultTimeout,
		logger:       zerolog.Nop(),
		createdAt:    time.Now(),
		emotion:      emotion.Neutral,
		memory:       memory.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("session", id).Logger()
	return c
}

// AttachSpeaker sets the voice output used after each reply.
func (c *Conversation) AttachSpeaker(s Speaker) {
	c.mu.Lock()
	c.speaker = s
	c.mu.Unlock()
}

// ID returns the session identifier.
func (c *Conversation) ID() string { return c.id }

// Blueprint returns the soul's blueprint.
func (c *Conversation) Blueprint() blueprint.Blueprint { return c.blueprint }

// Bus returns the event bus, which may be nil.
func (c *Conversation) Bus() *event.Bus { return c.bus }

// SubmitUserTurn 提交一条用户输入并等待灵魂回复。
// 空输入与进行中的回合会在任何状态变更之前被拒绝。协作方失败时以兜底回复完成回合。
func (c *Conversation) SubmitUserTurn(ctx context.Context, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.gate != gateIdle {
		c.mu.Unlock()
		return Turn{}, ErrTurnInFlight
	}
	c.gate = gateAwaitingResponse

	history := chat.Turns(c.messages)
	userMsg := newMessage(chat.RoleUser, text, nil)
	c.messages = append(c.messages, userMsg)
	c.thinking = true
	c.emotion = emotion.Thinking
	status := c.statusLocked()
	c.mu.Unlock()

	c.publish(event.TypeMessage, userMsg)
	c.publish(event.TypeStatus, status)
	c.publish(event.TypeEmotion, emotionPayload(emotion.Thinking))

	defer c.finishTurn()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	reply := c.collaborator.Generate(callCtx, history, text)
	cancel()

	if !reply.Emotion.Expressible() || strings.TrimSpace(reply.Response) == "" {
		c.logger.Warn().Str("emotion", string(reply.Emotion)).Msg("collaborator returned an invalid reply, using fallback")
		reply = ai.Fallback()
	}

	modelMsg := newMessage(chat.RoleModel, reply.Response, &chat.Metadata{
		Emotion: reply.Emotion,
		Thought: reply.ThoughtProcess,
	})

	c.mu.Lock()
	c.messages = append(c.messages, modelMsg)
	c.emotion = reply.Emotion
	c.thought = reply.ThoughtProcess
	c.memory = c.memory.Record(text, reply.Response, reply.Emotion)
	mem := c.memory.Clone()
	speaker := c.speaker
	c.mu.Unlock()

	c.publish(event.TypeMessage, modelMsg)
	c.publish(event.TypeEmotion, emotionPayload(reply.Emotion))
	c.publish(event.TypeMemory, mem)

	c.logger.Debug().
		Str("emotion", string(reply.Emotion)).
		Int("interactions", mem.InteractionsCount).
		Msg("turn completed")

	if speaker != nil {
		speaker.Speak(context.WithoutCancel(ctx), reply.Response, reply.Emotion)
	}

	return Turn{
		User:    userMsg,
		Reply:   modelMsg,
		Emotion: reply.Emotion,
		Thought: reply.ThoughtProcess,
		Memory:  mem,
	}, nil
}

// finishTurn 在任何情况下（包括 panic）清除 thinking 并放开闸门。
func (c *Conversation) finishTurn() {
	c.mu.Lock()
	c.thinking = false
	c.gate = gateIdle
	restored := false
	if c.emotion == emotion.Thinking {
		c.emotion = c.memory.LastEmotion
		restored = true
	}
	status := c.statusLocked()
	current := c.emotion
	c.mu.Unlock()

	if restored {
		c.publish(event.TypeEmotion, emotionPayload(current))
	}
	c.publish(event.TypeStatus, status)
}

// SetSpeaking is driven by the voice trigger.
func (c *Conversation) SetSpeaking(speaking bool) {
	c.mu.Lock()
	if c.speaking == speaking {
		c.mu.Unlock()
		return
	}
	c.speaking = speaking
	status := c.statusLocked()
	c.mu.Unlock()

	c.publish(event.TypeStatus, status)
}

// FrameInput implements animation.Source.
func (c *Conversation) FrameInput() animation.Input {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return animation.Input{
		Emotion:  c.emotion,
		Thinking: c.thinking,
		Speaking: c.speaking,
	}
}

// Messages returns a copy of the message log.
func (c *Conversation) Messages() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]chat.Message{}, c.messages...)
}

// Memory returns a copy of the short-term memory.
func (c *Conversation) Memory() memory.Core {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.memory.Clone()
}

// Snapshot returns a consistent copy of the whole state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		ID:        c.id,
		Blueprint: c.blueprint,
		CreatedAt: c.createdAt,
		Emotion:   c.emotion,
		Color:     emotion.Hex(c.emotion),
		Thinking:  c.thinking,
		Speaking:  c.speaking,
		Thought:   c.thought,
		Memory:    c.memory.Clone(),
		Messages:  append([]chat.Message{}, c.messages...),
	}
}

func (c *Conversation) statusLocked() Status {
	return Status{Thinking: c.thinking, Speaking: c.speaking}
}

func (c *Conversation) publish(typ event.Type, data interface{}) {
	if c.bus != nil {
		c.bus.Publish(event.New(c.id, typ, data))
	}
}

type emotionEvent struct {
	Emotion emotion.Tag `json:"emotion"`
	Color   string      `json:"color"`
}

func emotionPayload(tag emotion.Tag) emotionEvent {
	return emotionEvent{Emotion: tag, Color: emotion.Hex(tag)}
}

func newMessage(role chat.Role, content string, meta *chat.Metadata) chat.Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return chat.Message{
		ID:        id.String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  meta,
	}
}
