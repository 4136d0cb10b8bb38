package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the purpose of a message envelope.
type MessageType string

const (
	// MessageTypeContextShare announces a new shared context entry.
	MessageTypeContextShare MessageType = "context_share"
	// MessageTypeContextRequest asks for a shared context entry.
	MessageTypeContextRequest MessageType = "context_request"
	// MessageTypeContextUpdate announces a change to shared context.
	MessageTypeContextUpdate MessageType = "context_update"
	// MessageTypeAgentRegister announces an agent joining the system.
	MessageTypeAgentRegister MessageType = "agent_register"
	// MessageTypeAgentStatus announces an agent status change.
	MessageTypeAgentStatus MessageType = "agent_status"
	// MessageTypeTaskAssign offers a task to a specific agent.
	MessageTypeTaskAssign MessageType = "task_assign"
	// MessageTypeTaskResult reports a task outcome.
	MessageTypeTaskResult MessageType = "task_result"
	// MessageTypeCoordination carries coordinator-level instructions.
	MessageTypeCoordination MessageType = "coordination"
)

// Valid returns true if the message type is a known value.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeContextShare, MessageTypeContextRequest,
		MessageTypeContextUpdate, MessageTypeAgentRegister,
		MessageTypeAgentStatus, MessageTypeTaskAssign,
		MessageTypeTaskResult, MessageTypeCoordination:
		return true
	default:
		return false
	}
}

// Priority ranks messages and tasks. Higher values are more urgent.
type Priority int

const (
	// PriorityLow is routine traffic.
	PriorityLow Priority = 1
	// PriorityMedium is elevated traffic.
	PriorityMedium Priority = 2
	// PriorityHigh is urgent traffic.
	PriorityHigh Priority = 3
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Message is the envelope exchanged over the context store's dispatch.
// Messages are immutable once created and are not retained long-term;
// the store's retained queue is bounded by periodic cleanup.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// Type identifies the message purpose.
	Type MessageType `json:"type"`
	// SenderID is the originating agent or component.
	SenderID string `json:"sender_id"`
	// ReceiverID is the target agent. Empty means broadcast.
	ReceiverID string `json:"receiver_id,omitempty"`
	// Payload carries structured message data.
	Payload map[string]interface{} `json:"payload"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
	// ExpiresAt bounds how long the message may be retained, if set.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Priority ranks the message.
	Priority Priority `json:"priority"`
}

// NewMessage creates a message with a fresh ID and current timestamp.
func NewMessage(msgType MessageType, senderID, receiverID string, payload map[string]interface{}) *Message {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Message{
		ID:         uuid.New().String(),
		Type:       msgType,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Payload:    payload,
		Timestamp:  time.Now(),
		Priority:   PriorityLow,
	}
}

// IsBroadcast returns true if the message has no specific receiver.
func (m *Message) IsBroadcast() bool {
	return m.ReceiverID == ""
}

// Expired returns true if the message has an expiry in the past.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}
