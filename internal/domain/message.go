package domain

import (
	"time"
)

// MessageSender identifies which side of the conversation produced a message.
type MessageSender string

const (
	// SenderUser marks a message typed by the applicant.
	SenderUser MessageSender = "user"
	// SenderSystem marks a message produced by the dialogue engine.
	SenderSystem MessageSender = "system"
)

// Message is one entry in a session's transcript. The transcript is
// append-only and ordered by processing completion time; messages are
// never mutated after being appended.
type Message struct {
	Text      string        `json:"text"`
	Sender    MessageSender `json:"sender"`
	Options   []string      `json:"options,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
