package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
)

// Factory holds the shared provider clients and hands out one Collaborator
// per blueprint.
type Factory struct {
	cfg    config.AIConfig
	gemini *genai.Client
	ark    ArkChain
	logger zerolog.Logger
}

// NewFactory connects the configured provider. Missing credentials are not an
// error: the factory then produces collaborators that always fall back.
func NewFactory(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Factory, error) {
	f := &Factory{cfg: cfg, logger: logger}

	if !cfg.Enabled() {
		logger.Warn().Str("provider", cfg.Provider).Msg("AI credentials missing, every turn will use the fallback reply")
		return f, nil
	}

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		chain, err := NewArkChain(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		f.ark = chain
	default:
		client, err := NewGeminiClient(ctx, cfg.GeminiKey())
		if err != nil {
			return nil, err
		}
		f.gemini = client
	}

	logger.Info().Str("provider", cfg.Provider).Msg("AI collaborator initialized")
	return f, nil
}

// Disabled returns a factory whose collaborators always fall back.
func Disabled(cfg config.AIConfig, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Available reports whether a provider client is connected.
func (f *Factory) Available() bool {
	return f.gemini != nil || f.ark != nil
}

// Collaborator returns a guarded collaborator speaking as bp.
func (f *Factory) Collaborator(bp blueprint.Blueprint) *Guard {
	return NewGuard(f.backend(BuildSystemInstruction(bp)),
		WithMaxRetries(f.cfg.MaxRetries),
		WithLogger(f.logger.With().Str("blueprint", bp.ID).Logger()),
	)
}

func (f *Factory) backend(system string) Backend {
	switch {
	case f.ark != nil:
		return NewArkBackend(f.ark, system)
	case f.gemini != nil:
		return NewGeminiBackend(f.gemini, f.cfg.GeminiModel, f.cfg.Temperature, system)
	default:
		return Unavailable{}
	}
}
