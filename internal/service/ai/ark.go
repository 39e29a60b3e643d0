package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
)

// ArkChain is the compiled prompt → chat model pipeline shared by Ark backends.
type ArkChain = compose.Runnable[map[string]any, *schema.Message]

// NewArkChain compiles the system + history + query template in front of chatModel.
func NewArkChain(ctx context.Context, chatModel model.BaseChatModel) (ArkChain, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return runnable, nil
}

// ArkBackend runs a turn through an ArkChain with a fixed system instruction.
type ArkBackend struct {
	chain  ArkChain
	system string
}

// NewArkBackend binds chain to a system instruction.
func NewArkBackend(chain ArkChain, system string) *ArkBackend {
	return &ArkBackend{chain: chain, system: system}
}

// Complete implements Backend.
func (a *ArkBackend) Complete(ctx context.Context, history []chat.Turn, text string) (string, error) {
	response, err := a.chain.Invoke(ctx, map[string]any{
		"system":  a.system,
		"history": arkHistory(history),
		"query":   text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", errors.New("empty response from ark")
	}
	return response.Content, nil
}

func arkHistory(turns []chat.Turn) []*schema.Message {
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.RoleModel:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return history
}
