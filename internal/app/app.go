// Package app assembles the services behind the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/handler"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	"github.com/zhouzirui/motion-soul/backend/internal/service/ai"
	"github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/speech"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
)

// App holds the wired services.
type App struct {
	Config     *config.Config
	Blueprints blueprint.Store
	AI         *ai.Factory
	TTS        *speech.Client
	Sessions   *chat.Service
	logger     zerolog.Logger
}

// New wires every service from cfg. Missing AI or speech credentials degrade
// the corresponding feature instead of failing startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := *log.FromCtx(ctx)

	blueprints := blueprint.NewMemoryStore(blueprint.Seed())

	factory, err := ai.NewFactory(ctx, cfg.AI, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize AI collaborator, continuing with fallback replies")
		factory = ai.Disabled(cfg.AI, logger)
	}

	a := &App{
		Config:     cfg,
		Blueprints: blueprints,
		AI:         factory,
		logger:     logger,
	}

	opts := chat.Options{
		SpeechMode:      cfg.Speech.Mode,
		PreferredVoices: cfg.Speech.PreferredVoices,
		TurnTimeout:     cfg.AI.Timeout,
	}
	if cfg.Speech.Mode == config.SpeechModeCloud {
		if tts := NewTTS(cfg.Speech, logger); tts != nil {
			a.TTS = tts
			opts.Synthesizer = tts
			logger.Info().Strs("voices", tts.Voices()).Msg("cloud speech enabled")
		} else {
			logger.Warn().Msg("SPEECH_MODE=cloud but speech credentials are missing, relaying speech to the client")
		}
	}

	a.Sessions = chat.NewService(blueprints, func(bp blueprint.Blueprint) ai.Collaborator {
		return factory.Collaborator(bp)
	}, opts, logger)

	return a, nil
}

// NewTTS returns a Volcengine client, or nil without credentials.
func NewTTS(cfg config.SpeechConfig, logger zerolog.Logger) *speech.Client {
	if !cfg.CloudEnabled() {
		return nil
	}
	return speech.NewClient(speech.Config{
		AppID:       cfg.AppID,
		AccessToken: cfg.AccessToken,
		Voices:      cfg.TTSVoices,
		ResourceID:  cfg.TTSResourceID,
		Language:    cfg.TTSLanguage,
		Timeout:     cfg.Timeout,
	}, logger)
}

// Router builds the HTTP handler.
func (a *App) Router() http.Handler {
	return handler.NewRouter(a.Blueprints, a.Sessions, handler.Options{
		FPS:    a.Config.Animation.FPS,
		Logger: a.logger,
	})
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	a.logger.Info().Str("addr", srv.Addr).Msg("Motion Soul backend listening")
	defer a.Sessions.Close()
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
