package chat

import (
	"time"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

// Role 标识消息的发送方。
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Metadata carries what the soul felt and thought while replying.
type Metadata struct {
	Emotion emotion.Tag `json:"emotion,omitempty"`
	Thought string      `json:"thought,omitempty"`
}

// Message 会话中的一条消息，创建后不可修改。
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Turn is the role + text pair handed to the AI collaborator as history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Turns 将消息序列转换为协作方需要的历史格式。
func Turns(messages []Message) []Turn {
	if len(messages) == 0 {
		return nil
	}
	turns := make([]Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, Turn{Role: msg.Role, Text: msg.Content})
	}
	return turns
}
