package chat

import (
	"time"

	"github.com/google/uuid"
)

// Origin identifies who authored a chat entry.
type Origin string

const (
	// Visitor marks entries typed by the end user.
	Visitor Origin = "visitor"
	// Bot marks entries rendered from the assistant's JSON response.
	Bot Origin = "bot"
)

// Message is a single entry in the widget log. Messages are never mutated once created.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage stamps a message with an identifier and creation time.
func NewMessage(text string, origin Origin) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Origin:    origin,
		CreatedAt: time.Now().UTC(),
	}
}
