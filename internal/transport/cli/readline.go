package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/model/memory"
	"github.com/zhouzirui/motion-soul/backend/internal/service/soul"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
)

var (
	thoughtStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	systemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Turner is the part of a conversation the terminal drives.
type Turner interface {
	SubmitUserTurn(ctx context.Context, text string) (soul.Turn, error)
	Memory() memory.Core
}

// ReadLine 是终端里的灵魂对话界面，回复按当前情绪着色。
type ReadLine struct {
	conv Turner
	name string
	rl   *readline.Instance
}

// NewReadLine opens a terminal prompt for conv. historyFile may be empty.
func NewReadLine(conv Turner, name, historyFile string) (*ReadLine, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		conv: conv,
		name: name,
		rl:   rl,
	}, nil
}

// Start reads lines until exit, EOF, Ctrl+C on an empty line or ctx ends.
func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("Soul chat started. Type 'exit' to quit, '/memory' to inspect memory.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		out, quit := Handle(ctx, r.conv, r.name, line)
		if quit {
			return nil
		}
		if out != "" {
			fmt.Fprintln(r.rl.Stdout(), out)
		}
	}
}

// Shutdown closes the terminal.
func (r *ReadLine) Shutdown(context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

// Handle processes one input line and returns what to print and whether to quit.
func Handle(ctx context.Context, conv Turner, name, line string) (string, bool) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return "", false
	case "exit", "quit":
		return "", true
	case "/memory":
		return RenderMemory(conv.Memory()), false
	}

	turn, err := conv.SubmitUserTurn(ctx, line)
	if err != nil {
		return errorStyle.Render("Error: " + err.Error()), false
	}
	return RenderTurn(name, turn), false
}

// RenderTurn formats a reply in the emotion's palette color.
func RenderTurn(name string, turn soul.Turn) string {
	tagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(emotion.Hex(turn.Emotion))).Bold(true)
	replyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(emotion.Hex(turn.Emotion)))

	var b strings.Builder
	if turn.Thought != "" {
		b.WriteString(thoughtStyle.Render("[" + turn.Thought + "]"))
		b.WriteString("\n")
	}
	b.WriteString(tagStyle.Render(fmt.Sprintf("%s (%s)", name, turn.Emotion)))
	b.WriteString(" ")
	b.WriteString(replyStyle.Render(turn.Reply.Content))
	return b.String()
}

// RenderMemory formats the short-term memory window.
func RenderMemory(mem memory.Core) string {
	var b strings.Builder
	b.WriteString(systemStyle.Render(fmt.Sprintf("interactions: %d, last emotion: %s", mem.InteractionsCount, mem.LastEmotion)))
	for i, entry := range mem.ShortTerm {
		b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, entry))
	}
	return b.String()
}
