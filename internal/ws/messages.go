package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgActivity MessageType = "activity"
	MsgError    MessageType = "error"
	MsgSync     MessageType = "sync"
	MsgHistory  MessageType = "history"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: typ, Payload: p})
}

// Activity describes one tool call against a connection.
type Activity struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Connection string    `json:"connection,omitempty"`
	Tool       string    `json:"tool"`
	Status     string    `json:"status"` // ok or error
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Items      int       `json:"items,omitempty"`
	Affected   int64     `json:"affected,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// NewActivity stamps a new event with an ID and the current time.
func NewActivity(connection, tool string) Activity {
	return Activity{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Connection: connection,
		Tool:       tool,
		Status:     "ok",
	}
}
