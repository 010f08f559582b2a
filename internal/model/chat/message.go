package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transcript 是只追加的消息序列，仅在会话销毁时整体丢弃。
type Transcript struct {
	messages []Message
}

// Append adds a message, stamping CreatedAt when unset.
func (t *Transcript) Append(role Role, content string) Message {
	msg := Message{Role: role, Content: content, CreatedAt: time.Now().UTC()}
	t.messages = append(t.messages, msg)
	return msg
}

// Len reports the number of entries.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the entries in order.
func (t *Transcript) Messages() []Message {
	copied := make([]Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}
