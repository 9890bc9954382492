// Package relay carries chat messages between two peers as signed tokens
// posted over HTTP.
package relay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxUsernameLength = 64
	maxTextLength     = 4096
)

var ErrInvalidMessage = errors.New("invalid chat message")

// ChatMessage is the payload of every relayed token.
type ChatMessage struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewChatMessage stamps text from username with a fresh ID and the local time.
func NewChatMessage(username, text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Text:      text,
		Timestamp: now.Format(time.RFC3339),
	}
}

// Validate checks the fields a receiver relies on.
func (m ChatMessage) Validate() error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return fmt.Errorf("%w: id: %v", ErrInvalidMessage, err)
	}
	if strings.TrimSpace(m.Username) == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidMessage)
	}
	if len(m.Username) > maxUsernameLength {
		return fmt.Errorf("%w: username longer than %d bytes", ErrInvalidMessage, maxUsernameLength)
	}
	if len(m.Text) > maxTextLength {
		return fmt.Errorf("%w: text longer than %d bytes", ErrInvalidMessage, maxTextLength)
	}
	if _, err := time.Parse(time.RFC3339, m.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp: %v", ErrInvalidMessage, err)
	}
	return nil
}

// String renders the message the way the chat prints it.
func (m ChatMessage) String() string {
	return fmt.Sprintf("%s [%s]: %s", m.Username, m.Timestamp, m.Text)
}
