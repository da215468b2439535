package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of a client-carried transcript.
// Feedback is nil until the user rates an assistant turn.
type ChatTurn struct {
	Role     Role
	Content  string
	Feedback *bool
}

// Message is what reaches the language model: role and content only.
type Message struct {
	Role    Role
	Content string
}

// Prompt is the payload assembled for one chat turn.
type Prompt struct {
	ID               string
	System           string
	Messages         []Message
	Supervisor       string
	ContextDocuments int
}

// All returns the system instructions followed by the conversation.
func (p Prompt) All() []Message {
	out := make([]Message, 0, len(p.Messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: p.System})
	return append(out, p.Messages...)
}

// Completion is the outcome of a chat turn, blocking or streamed.
type Completion struct {
	Text       string
	Chunks     int
	Aborted    bool
	Supervisor string
}
