package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/event"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/ai"
	"github.com/zhouzirui/motion-soul/backend/internal/service/soul"
	"github.com/zhouzirui/motion-soul/backend/internal/service/voice"
)

var (
	ErrBlueprintNotFound = errors.New("blueprint not found")
	ErrSessionNotFound   = errors.New("session not found")
)

// CollaboratorFunc 为蓝图创建一个 AI 协作方。
type CollaboratorFunc func(bp blueprint.Blueprint) ai.Collaborator

// Options 控制新会话的语音与超时配置。
type Options struct {
	SpeechMode      string
	PreferredVoices []string
	TurnTimeout     time.Duration
	// Synthesizer 仅在 SpeechMode 为 cloud 时使用，为 nil 时退回 relay。
	Synthesizer voice.Synthesizer
}

// Session 是注册表中的一个活跃会话。
type Session struct {
	chat.Session
	Conversation *soul.Conversation
	Trigger      *voice.Trigger
	// Relay is nil unless speech is relayed to the connected client.
	Relay *voice.Relay
	bus   *event.Bus
}

// Bus returns the session's event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Service keeps every live session in memory until the process exits.
type Service struct {
	blueprints    blueprint.Store
	collaborators CollaboratorFunc
	opts          Options
	logger        zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService wires the registry to the blueprint store and collaborator source.
func NewService(blueprints blueprint.Store, collaborators CollaboratorFunc, opts Options, logger zerolog.Logger) *Service {
	if collaborators == nil {
		collaborators = func(blueprint.Blueprint) ai.Collaborator { return ai.NewGuard(nil) }
	}
	if opts.SpeechMode == "" {
		opts.SpeechMode = config.SpeechModeRelay
	}
	return &Service{
		blueprints:    blueprints,
		collaborators: collaborators,
		opts:          opts,
		logger:        logger.With().Str("component", "sessions").Logger(),
		sessions:      make(map[string]*Session),
	}
}

// CreateSession provisions an anonymous session bound to a blueprint. An empty
// id selects the default soul.
func (s *Service) CreateSession(_ context.Context, blueprintID string) (*Session, error) {
	blueprintID = strings.TrimSpace(blueprintID)
	if blueprintID == "" {
		blueprintID = blueprint.DefaultID
	}
	bp, ok := s.blueprints.FindByID(blueprintID)
	if !ok {
		return nil, ErrBlueprintNotFound
	}

	id := uuid.NewString()
	logger := s.logger.With().Str("session", id).Logger()
	bus := event.NewBus()

	conv := soul.New(id, bp, s.collaborators(bp),
		soul.WithBus(bus),
		soul.WithTimeout(s.opts.TurnTimeout),
		soul.WithLogger(logger),
	)

	session := &Session{
		Session: chat.Session{
			ID:          id,
			BlueprintID: bp.ID,
			CreatedAt:   time.Now().UTC(),
		},
		Conversation: conv,
		bus:          bus,
	}

	var device voice.Device
	switch {
	case s.opts.SpeechMode == config.SpeechModeOff:
	case s.opts.SpeechMode == config.SpeechModeCloud && s.opts.Synthesizer != nil:
		device = voice.NewCloud(id, bus, s.opts.Synthesizer, logger)
	default:
		session.Relay = voice.NewRelay(id, bus)
		device = session.Relay
	}
	session.Trigger = voice.NewTrigger(device, s.opts.PreferredVoices, conv, logger)
	conv.AttachSpeaker(session.Trigger)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	logger.Info().Str("blueprint", bp.ID).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns session descriptors ordered by creation time.
func (s *Service) List(_ context.Context) []chat.Session {
	s.mu.RLock()
	list := make([]chat.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		list = append(list, session.Session)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Close stops speech and closes every session bus so streaming clients end.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		session.Trigger.Stop()
		session.bus.Close()
	}
}
