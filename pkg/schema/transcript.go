package schema

import (
	"strings"
	"time"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Label is the transcript prefix for the role.
func (r Role) Label() string {
	if r == RoleAI {
		return "AI"
	}
	return "User"
}

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTranscript renders messages as newline-joined "<Role>: <text>" lines.
func FormatTranscript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role.Label())
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

// ParseTranscript is the inverse of FormatTranscript. Lines that carry no
// role prefix continue the previous message; leading unprefixed lines are
// attributed to the user.
func ParseTranscript(text string) []Message {
	var msgs []Message
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "User: "):
			msgs = append(msgs, Message{Role: RoleUser, Text: strings.TrimPrefix(line, "User: ")})
		case strings.HasPrefix(line, "AI: "):
			msgs = append(msgs, Message{Role: RoleAI, Text: strings.TrimPrefix(line, "AI: ")})
		case len(msgs) > 0:
			msgs[len(msgs)-1].Text += "\n" + line
		case strings.TrimSpace(line) != "":
			msgs = append(msgs, Message{Role: RoleUser, Text: line})
		}
	}
	return msgs
}
