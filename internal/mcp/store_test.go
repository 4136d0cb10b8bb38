package mcp

import (
	"sync"
	"testing"
	"time"

	"github.com/aimami-art/agentmesh/pkg/models"
)

func testAgent(id string) *models.AgentInfo {
	return models.NewAgentInfo(id, "TestAgent", models.NewCapabilitySet(models.CapabilityMarketAnalysis))
}

func TestContextStore_RegisterAgentIdempotent(t *testing.T) {
	store := NewContextStore()

	store.RegisterAgent(testAgent("agent-1"))
	store.RegisterAgent(testAgent("agent-1"))

	agents, _, _ := store.Counts()
	if agents != 1 {
		t.Errorf("registering the same ID twice: agent count = %d, want 1", agents)
	}
}

func TestContextStore_UpdateAgentStatus(t *testing.T) {
	store := NewContextStore()
	store.RegisterAgent(testAgent("agent-1"))

	if !store.UpdateAgentStatus("agent-1", models.AgentStatusBusy, map[string]interface{}{"load": 2}) {
		t.Fatal("update for known agent should return true")
	}

	info, ok := store.GetAgent("agent-1")
	if !ok {
		t.Fatal("agent should be retrievable")
	}
	if info.Status != models.AgentStatusBusy {
		t.Errorf("status = %q, want %q", info.Status, models.AgentStatusBusy)
	}
	if info.Metadata["load"] != 2 {
		t.Errorf("metadata not merged: %v", info.Metadata)
	}

	if store.UpdateAgentStatus("ghost", models.AgentStatusIdle, nil) {
		t.Error("update for unknown agent should return false")
	}
}

func TestContextStore_GetContextTTL(t *testing.T) {
	store := NewContextStore()

	store.ShareContext("agent-1", "short", "value", 10*time.Millisecond)

	if v, ok := store.GetContext("short"); !ok || v != "value" {
		t.Fatalf("GetContext before expiry = (%v, %v), want (value, true)", v, ok)
	}

	time.Sleep(20 * time.Millisecond)

	// Reads after expiry must act as absent, no matter how often repeated.
	for i := 0; i < 3; i++ {
		if _, ok := store.GetContext("short"); ok {
			t.Fatalf("read %d after expiry should be absent", i)
		}
	}
}

func TestContextStore_ShareContextOverwrite(t *testing.T) {
	store := NewContextStore()

	store.ShareContext("agent-1", "key", "first", time.Minute)
	store.ShareContext("agent-2", "key", "second", time.Minute)

	v, ok := store.GetContext("key")
	if !ok || v != "second" {
		t.Errorf("GetContext after overwrite = (%v, %v), want (second, true)", v, ok)
	}

	_, contexts, _ := store.Counts()
	if contexts != 1 {
		t.Errorf("overwrite should not duplicate entries, have %d", contexts)
	}
}

func TestContextStore_ShareContextBroadcastOmitsValue(t *testing.T) {
	store := NewContextStore()

	var mu sync.Mutex
	var received []*models.Message
	store.Subscribe("listener", func(msg *models.Message) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	store.ShareContext("agent-1", "heavy", map[string]interface{}{"blob": "large"}, time.Minute)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(received))
	}
	msg := received[0]
	if msg.Type != models.MessageTypeContextShare {
		t.Errorf("message type = %q, want %q", msg.Type, models.MessageTypeContextShare)
	}
	if msg.Payload["context_key"] != "heavy" {
		t.Errorf("payload should carry the key, got %v", msg.Payload)
	}
	if _, hasValue := msg.Payload["value"]; hasValue {
		t.Error("broadcast payload must not carry the shared value")
	}
}

func TestContextStore_SendMessageDirected(t *testing.T) {
	store := NewContextStore()

	var mu sync.Mutex
	counts := make(map[string]int)
	subscribe := func(id string) {
		store.Subscribe(id, func(msg *models.Message) {
			mu.Lock()
			counts[id]++
			mu.Unlock()
		})
	}
	subscribe("agent-1")
	subscribe("agent-2")

	store.SendMessage(models.NewMessage(models.MessageTypeTaskAssign, "network", "agent-1", nil))

	mu.Lock()
	defer mu.Unlock()
	if counts["agent-1"] != 1 {
		t.Errorf("receiver delivery count = %d, want 1", counts["agent-1"])
	}
	if counts["agent-2"] != 0 {
		t.Errorf("non-receiver delivery count = %d, want 0", counts["agent-2"])
	}
}

func TestContextStore_BroadcastExcludesSender(t *testing.T) {
	store := NewContextStore()

	var mu sync.Mutex
	counts := make(map[string]int)
	subscribe := func(id string) {
		store.Subscribe(id, func(msg *models.Message) {
			mu.Lock()
			counts[id]++
			mu.Unlock()
		})
	}
	subscribe("agent-1")
	subscribe("agent-2")
	subscribe("agent-3")

	store.SendMessage(models.NewMessage(models.MessageTypeCoordination, "agent-1", "", nil))

	mu.Lock()
	defer mu.Unlock()
	if counts["agent-1"] != 0 {
		t.Errorf("sender should not receive its own broadcast, got %d", counts["agent-1"])
	}
	if counts["agent-2"] != 1 || counts["agent-3"] != 1 {
		t.Errorf("other agents should each receive the broadcast: %v", counts)
	}
}

func TestContextStore_PanickingSubscriberIsolated(t *testing.T) {
	store := NewContextStore()

	store.Subscribe("agent-1", func(msg *models.Message) {
		panic("broken subscriber")
	})

	var mu sync.Mutex
	delivered := 0
	store.Subscribe("agent-2", func(msg *models.Message) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	// Must not panic, and must still reach agent-2.
	store.SendMessage(models.NewMessage(models.MessageTypeCoordination, "network", "", nil))

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Errorf("delivery after panicking subscriber = %d, want 1", delivered)
	}
}

func TestContextStore_GetActiveAgentsHeartbeatWindow(t *testing.T) {
	store := NewContextStore()

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"fresh heartbeat", time.Second, true},
		{"just inside window", 4*time.Minute + 59*time.Second, true},
		{"just outside window", 5*time.Minute + 1*time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := testAgent("agent-" + tt.name)
			info.LastSeen = time.Now().Add(-tt.age)
			store.RegisterAgent(info)

			found := false
			for _, a := range store.GetActiveAgents() {
				if a.ID == info.ID {
					found = true
				}
			}
			if found != tt.want {
				t.Errorf("heartbeat age %s: active = %v, want %v", tt.age, found, tt.want)
			}
		})
	}
}

func TestContextStore_GetActiveAgentsExcludesOffline(t *testing.T) {
	store := NewContextStore()

	info := testAgent("agent-1")
	info.Status = models.AgentStatusOffline
	store.RegisterAgent(info)

	if got := len(store.GetActiveAgents()); got != 0 {
		t.Errorf("offline agent counted as active, got %d", got)
	}
}

func TestContextStore_CleanupExpired(t *testing.T) {
	store := NewContextStore()

	store.ShareContext("agent-1", "stale", "x", -time.Minute)
	store.ShareContext("agent-1", "fresh", "y", time.Hour)

	expired := time.Now().Add(-time.Second)
	msg := models.NewMessage(models.MessageTypeCoordination, "a", "", nil)
	msg.ExpiresAt = &expired
	store.SendMessage(msg)
	store.SendMessage(models.NewMessage(models.MessageTypeCoordination, "a", "", nil))

	removed := store.CleanupExpired()
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	_, contexts, messages := store.Counts()
	if contexts != 1 {
		t.Errorf("context count after cleanup = %d, want 1", contexts)
	}
	if messages != 1 {
		t.Errorf("message count after cleanup = %d, want 1", messages)
	}
}
