package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/motion-soul/backend/internal/app"
	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/transport/cli"
)

var (
	chatBlueprint string
	chatHistory   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the soul from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// 终端里没有浏览器朗读，也不播放云端音频
		cfg.Speech.Mode = config.SpeechModeOff

		var flushLog func()
		ctx, flushLog = setupLogger(ctx, cfg)
		defer flushLog()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}

		session, err := a.Sessions.CreateSession(ctx, chatBlueprint)
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		bp := session.Conversation.Blueprint()
		fmt.Println(titleStyle.Render(bp.Name) + " " + descStyle.Render(bp.Greeting))

		rl, err := cli.NewReadLine(session.Conversation, bp.Name, chatHistory)
		if err != nil {
			return err
		}
		defer rl.Shutdown(ctx)

		return rl.Start(ctx)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatBlueprint, "blueprint", "b", "", "blueprint id (defaults to the built-in soul)")
	chatCmd.Flags().StringVar(&chatHistory, "history", "", "file to keep input history in")
	rootCmd.AddCommand(chatCmd)
}
