package memory

import "github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"

// Capacity 短期记忆最多保留的条目数。
const Capacity = 5

// Core 是灵魂的短期记忆：最近的对话文本滑动窗口加计数器。
type Core struct {
	ShortTerm         []string    `json:"shortTerm"`
	LastEmotion       emotion.Tag `json:"lastEmotion"`
	InteractionsCount int         `json:"interactionsCount"`
}

// New returns an empty memory resting on Neutral.
func New() Core {
	return Core{
		ShortTerm:   []string{},
		LastEmotion: emotion.Neutral,
	}
}

// Record 记录一次完成的回合，返回新的记忆值，原值不变。
// 用户文本与回复依次入队，超过 Capacity 时从最旧的开始淘汰。
func (c Core) Record(userText, response string, tag emotion.Tag) Core {
	entries := make([]string, 0, len(c.ShortTerm)+2)
	entries = append(entries, c.ShortTerm...)
	entries = append(entries, userText, response)
	if len(entries) > Capacity {
		entries = entries[len(entries)-Capacity:]
	}

	return Core{
		ShortTerm:         entries,
		LastEmotion:       tag,
		InteractionsCount: c.InteractionsCount + 1,
	}
}

// Clone returns a copy that shares no backing array with c.
func (c Core) Clone() Core {
	c.ShortTerm = append([]string{}, c.ShortTerm...)
	return c
}
