package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultTitle is the title the backend gives conversations nobody named
const DefaultTitle = "New Conversation"

// Message represents a single chat message
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the list-view record of a conversation. Messages is only
// set once the client has fetched the detail record for it.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// ConversationDetail is the full record of one conversation
type ConversationDetail struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Summary  *string   `json:"summary,omitempty"`
	Messages []Message `json:"messages"`
}

// DisplayMessages returns msgs without system messages, in order.
func DisplayMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// FormatTitle returns the sidebar label for a conversation. Untitled
// conversations are labelled with the first five words of their first user
// message.
func FormatTitle(title string, messages []Message) string {
	if len(messages) > 0 && (title == "" || title == DefaultTitle) {
		first := ""
		for _, msg := range messages {
			if msg.Role == RoleUser {
				first = msg.Content
				break
			}
		}
		words := strings.Split(first, " ")
		short := strings.Join(words[:min(len(words), 5)], " ")
		if len(words) > 5 {
			return short + "..."
		}
		return short
	}

	if utf8.RuneCountInString(title) > 30 {
		return string([]rune(title)[:27]) + "..."
	}
	return title
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats the backend emits. Timestamps
// without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders the local calendar date of a backend timestamp. Values
// that do not parse are returned unchanged.
func FormatDate(s string) string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Local().Format("Jan 2, 2006")
}
