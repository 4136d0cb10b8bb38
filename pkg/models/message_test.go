package models

import (
	"testing"
	"time"
)

func TestMessageType_Valid(t *testing.T) {
	valid := []MessageType{
		MessageTypeContextShare, MessageTypeContextRequest,
		MessageTypeContextUpdate, MessageTypeAgentRegister,
		MessageTypeAgentStatus, MessageTypeTaskAssign,
		MessageTypeTaskResult, MessageTypeCoordination,
	}
	for _, mt := range valid {
		if !mt.Valid() {
			t.Errorf("MessageType(%q).Valid() = false, want true", mt)
		}
	}

	if MessageType("ping").Valid() {
		t.Error("unknown message type should be invalid")
	}
}

func TestPriority_String(t *testing.T) {
	tests := []struct {
		priority Priority
		want     string
	}{
		{PriorityLow, "low"},
		{PriorityMedium, "medium"},
		{PriorityHigh, "high"},
		{Priority(0), "unknown"},
		{Priority(9), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.priority.String(); got != tt.want {
				t.Errorf("Priority(%d).String() = %q, want %q", tt.priority, got, tt.want)
			}
		})
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(MessageTypeTaskAssign, "network", "agent-1", nil)

	if msg.ID == "" {
		t.Error("message ID should be generated")
	}
	if msg.Payload == nil {
		t.Error("nil payload should be replaced with an empty map")
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
	if msg.IsBroadcast() {
		t.Error("message with receiver should not be broadcast")
	}

	broadcast := NewMessage(MessageTypeAgentRegister, "agent-1", "", nil)
	if !broadcast.IsBroadcast() {
		t.Error("message without receiver should be broadcast")
	}
}

func TestMessage_Expired(t *testing.T) {
	now := time.Now()

	msg := NewMessage(MessageTypeContextShare, "a", "", nil)
	if msg.Expired(now) {
		t.Error("message without expiry should never expire")
	}

	past := now.Add(-time.Minute)
	msg.ExpiresAt = &past
	if !msg.Expired(now) {
		t.Error("message with past expiry should be expired")
	}

	future := now.Add(time.Minute)
	msg.ExpiresAt = &future
	if msg.Expired(now) {
		t.Error("message with future expiry should not be expired")
	}
}
