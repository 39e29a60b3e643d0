package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/app"
	"github.com/zhouzirui/motion-soul/backend/internal/service/speech"
	"github.com/zhouzirui/motion-soul/backend/internal/service/voice"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
)

var ttsOpts struct {
	text    string
	voice   string
	emotion string
	format  string
	out     string
	timeout time.Duration
}

var ttsCmd = &cobra.Command{
	Use:   "tts",
	Short: "Synthesize a line with the cloud voice and save the audio",
	Long:  `Calls the Volcengine TTS stream with the soul's emotional prosody; useful for checking SPEECH_* credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(ttsOpts.text) == "" {
			return errors.New("--text is required")
		}
		tag := emotion.Neutral
		if ttsOpts.emotion != "" {
			parsed, ok := emotion.ParseExpressible(ttsOpts.emotion)
			if !ok {
				return fmt.Errorf("unsupported emotion %q", ttsOpts.emotion)
			}
			tag = parsed
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, flushLog := setupLogger(cmd.Context(), cfg)
		defer flushLog()
		logger := log.FromCtx(ctx)

		client := app.NewTTS(cfg.Speech, *logger)
		if client == nil {
			return speech.ErrNotConfigured
		}

		ctx, cancel := context.WithTimeout(ctx, ttsOpts.timeout)
		defer cancel()

		logger.Info().Str("voice", ttsOpts.voice).Str("emotion", string(tag)).Msg("starting synthesis")
		result, err := client.Synthesize(ctx, speech.Request{
			Text:    ttsOpts.text,
			Voice:   ttsOpts.voice,
			Rate:    voice.ParamsFor(tag).Rate,
			Emotion: tag,
			Format:  ttsOpts.format,
		})
		if err != nil {
			return fmt.Errorf("synthesis failed: %w", err)
		}

		out := ttsOpts.out
		if out == "" {
			out = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), result.Format)
		}
		if err := os.WriteFile(out, result.Audio, 0o644); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}

		logger.Info().
			Str("file", out).
			Str("voice", result.Voice).
			Dur("duration", result.Duration).
			Msg("synthesis finished")
		return nil
	},
}

func init() {
	ttsCmd.Flags().StringVar(&ttsOpts.text, "text", "", "text to synthesize")
	ttsCmd.Flags().StringVar(&ttsOpts.voice, "voice", "", "speaker id (defaults to SPEECH_TTS_VOICES)")
	ttsCmd.Flags().StringVar(&ttsOpts.emotion, "emotion", "", "Neutral, Joy, Sadness, Anger or Surprise")
	ttsCmd.Flags().StringVar(&ttsOpts.format, "format", "mp3", "audio format")
	ttsCmd.Flags().StringVar(&ttsOpts.out, "out", "", "output file (defaults to tts-output-<unix>.<format>)")
	ttsCmd.Flags().DurationVar(&ttsOpts.timeout, "timeout", 45*time.Second, "request timeout")
	rootCmd.AddCommand(ttsCmd)
}
