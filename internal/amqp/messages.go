package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Resource names carried by change messages.
const (
	ResourceEstimation = "estimation"
	ResourceProject    = "project"
)

// Operations carried by change messages.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// ChangeMessage announces that a stored record changed. It carries only the
// id; consumers reload the record from the store.
type ChangeMessage struct {
	Resource  string    `json:"resource"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(resource, id, op string) *ChangeMessage {
	return &ChangeMessage{
		Resource:  resource,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones missing an id or
// resource.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.Resource == "" {
		return nil, fmt.Errorf("change message missing id or resource")
	}
	return &msg, nil
}
