package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/model/chat"
)

// GeminiBackend calls the Gemini API with a structured-output chat.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
	system      string
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiBackend binds a client to a model and system instruction.
func NewGeminiBackend(client *genai.Client, model string, temperature float32, system string) *GeminiBackend {
	return &GeminiBackend{
		client:      client,
		model:       model,
		temperature: temperature,
		system:      system,
	}
}

// Complete implements Backend.
func (g *GeminiBackend) Complete(ctx context.Context, history []chat.Turn, text string) (string, error) {
	session, err := g.client.Chats.Create(ctx, g.model, g.generateConfig(), geminiHistory(history))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini chat: %w", err)
	}

	res, err := session.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to send gemini message: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}

	var out strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part != nil {
			out.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", errors.New("empty response from gemini")
	}
	return out.String(), nil
}

func (g *GeminiBackend) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(g.system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		ResponseSchema:    soulResponseSchema(),
	}
}

func soulResponseSchema() *genai.Schema {
	tags := emotion.Expressible()
	enum := make([]string, len(tags))
	for i, tag := range tags {
		enum[i] = string(tag)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"emotion": {
				Type:        genai.TypeString,
				Enum:        enum,
				Description: "The emotional state of the character based on the interaction.",
			},
			"thought_process": {
				Type:        genai.TypeString,
				Description: "Internal reasoning or memory access logs.",
			},
			"response": {
				Type:        genai.TypeString,
				Description: "The verbal response to the user.",
			},
		},
		Required:         []string{"emotion", "thought_process", "response"},
		PropertyOrdering: []string{"emotion", "thought_process", "response"},
	}
}

func geminiHistory(turns []chat.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, genai.NewContentFromText(turn.Text, genai.RoleUser))
		case chat.RoleModel:
			history = append(history, genai.NewContentFromText(turn.Text, genai.RoleModel))
		}
	}
	return history
}
