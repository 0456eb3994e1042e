package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the "type" discriminator of an inbound event.
type MessageType string

const (
	TypeProgressUpdate   MessageType = "progress_update"
	TypeError            MessageType = "error"
	TypeConnectionStatus MessageType = "connection_status"
)

// ErrMalformed is wrapped by Decode for payloads that are not a message.
var ErrMalformed = errors.New("malformed message")

// Message is one inbound push-channel event. Which fields are set depends
// on Type; the backend may also send fields the engine does not consume.
type Message struct {
	Type            MessageType `json:"type"`
	Step            string      `json:"step,omitempty"`
	Status          string      `json:"status,omitempty"`
	Message         string      `json:"message,omitempty"`
	OverallProgress *float64    `json:"overall_progress,omitempty"`
}

// Decode parses a single JSON object into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return m, nil
}
