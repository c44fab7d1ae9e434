package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageVersion is the payload schema written by this build.
const MessageVersion = 1

// Message asks a worker to run one sync job.
type Message struct {
	Job        string `json:"job"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a message for job with a fresh request id.
func NewMessage(job string, now time.Time) Message {
	return Message{
		Job:        job,
		RequestID:  uuid.NewString(),
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
