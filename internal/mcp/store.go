// Package mcp implements the context-sharing bus: an agent registry,
// a TTL-bounded shared context store, and pub/sub message dispatch.
package mcp

import (
	"log"
	"sync"
	"time"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// Subscriber is a callback invoked for every message an agent should
// receive. A panic inside a subscriber is recovered and logged; it never
// blocks delivery to other subscribers.
type Subscriber func(*models.Message)

// sharedEntry is one TTL-bounded context blob.
type sharedEntry struct {
	value     interface{}
	ownerID   string
	createdAt time.Time
	expiresAt time.Time
}

// SharedContextInfo describes a shared context entry without its value.
type SharedContextInfo struct {
	// Key is the context key.
	Key string `json:"key"`
	// OwnerID is the agent that shared the entry.
	OwnerID string `json:"owner_id"`
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is when reads start treating the entry as absent.
	ExpiresAt time.Time `json:"expires_at"`
}

// heartbeatWindow is how recent an agent's heartbeat must be for the
// agent to count as active.
const heartbeatWindow = 5 * time.Minute

// ContextStore is the central registry and pub/sub hub shared by all
// agents. All mutating operations serialize through a single mutex;
// subscriber callbacks are invoked against a snapshot taken under the
// lock, so a callback may safely re-enter the store.
type ContextStore struct {
	mu sync.RWMutex
	// agents maps agent ID to its record. Records go offline, never away.
	agents map[string]*models.AgentInfo
	// shared maps context key to its TTL-bounded entry.
	shared map[string]*sharedEntry
	// messages is the transient retained queue, bounded by CleanupExpired.
	messages []*models.Message
	// subscribers maps agent ID to its registered callbacks.
	subscribers map[string][]Subscriber
}

// NewContextStore creates an empty context store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		agents:      make(map[string]*models.AgentInfo),
		shared:      make(map[string]*sharedEntry),
		subscribers: make(map[string][]Subscriber),
	}
}

// RegisterAgent inserts or overwrites the agent record and broadcasts an
// agent_register message to all other subscribers. Idempotent by ID.
func (s *ContextStore) RegisterAgent(info *models.AgentInfo) {
	s.mu.Lock()
	s.agents[info.ID] = info
	log.Printf("[mcp] agent registered: %s (%s)", info.ID, info.Type)
	s.mu.Unlock()

	msg := models.NewMessage(models.MessageTypeAgentRegister, info.ID, "", map[string]interface{}{
		"agent_type":   info.Type,
		"capabilities": info.Capabilities.List(),
		"status":       string(info.Status),
	})
	s.dispatch(msg)
}

// UpdateAgentStatus updates the agent's status and heartbeat and merges
// metadata, then broadcasts an agent_status message. Returns false if the
// agent is unknown.
func (s *ContextStore) UpdateAgentStatus(agentID string, status models.AgentStatus, metadata map[string]interface{}) bool {
	s.mu.Lock()
	info, ok := s.agents[agentID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	info.Status = status
	info.LastSeen = time.Now()
	for k, v := range metadata {
		info.Metadata[k] = v
	}
	s.mu.Unlock()

	payload := map[string]interface{}{"status": string(status)}
	if metadata != nil {
		payload["metadata"] = metadata
	}
	s.dispatch(models.NewMessage(models.MessageTypeAgentStatus, agentID, "", payload))
	return true
}

// ShareContext stores a value under key with the given TTL, overwriting
// any previous entry, and broadcasts a context_share message carrying only
// the key and expiry. The value never rides the broadcast.
func (s *ContextStore) ShareContext(senderID, key string, value interface{}, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)

	s.mu.Lock()
	s.shared[key] = &sharedEntry{
		value:     value,
		ownerID:   senderID,
		createdAt: time.Now(),
		expiresAt: expiresAt,
	}
	s.mu.Unlock()

	s.dispatch(models.NewMessage(models.MessageTypeContextShare, senderID, "", map[string]interface{}{
		"context_key": key,
		"expires_at":  expiresAt.Format(time.RFC3339),
	}))
}

// GetContext returns the value for key if present and unexpired.
// An expired entry is deleted on access and reported absent.
func (s *ContextStore) GetContext(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shared[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(time.Now()) {
		delete(s.shared, key)
		return nil, false
	}
	return entry.value, true
}

// ListContexts returns metadata for all unexpired shared entries.
func (s *ContextStore) ListContexts() []SharedContextInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	out := make([]SharedContextInfo, 0, len(s.shared))
	for key, entry := range s.shared {
		if !entry.expiresAt.After(now) {
			continue
		}
		out = append(out, SharedContextInfo{
			Key:       key,
			OwnerID:   entry.ownerID,
			CreatedAt: entry.createdAt,
			ExpiresAt: entry.expiresAt,
		})
	}
	return out
}

// SendMessage appends the message to the retained queue and delivers it.
// A set receiver restricts delivery to that agent's subscribers; otherwise
// the message goes to every subscriber except the sender.
func (s *ContextStore) SendMessage(msg *models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.dispatch(msg)
}

// Subscribe registers a callback for every message the agent should
// receive: directed messages addressed to it plus all broadcasts from
// other senders.
func (s *ContextStore) Subscribe(agentID string, fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[agentID] = append(s.subscribers[agentID], fn)
}

// GetAgent returns a copy of the agent record, or false if unknown.
func (s *ContextStore) GetAgent(agentID string) (*models.AgentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.agents[agentID]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

// GetActiveAgents returns copies of agent records whose status is
// active, busy, or idle and whose heartbeat falls within the freshness
// window. Stale agents are excluded but not marked offline; this is a
// read-only filter.
func (s *ContextStore) GetActiveAgents() []*models.AgentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-heartbeatWindow)
	var active []*models.AgentInfo
	for _, info := range s.agents {
		if info.Status.IsAvailable() && info.LastSeen.After(cutoff) {
			active = append(active, info.Clone())
		}
	}
	return active
}

// CleanupExpired removes shared entries past their expiry and retained
// messages past their own. Intended to run periodically, not per access.
// Returns the number of shared entries removed.
func (s *ContextStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range s.shared {
		if !entry.expiresAt.After(now) {
			delete(s.shared, key)
			removed++
		}
	}

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if !msg.Expired(now) {
			kept = append(kept, msg)
		}
	}
	s.messages = kept

	if removed > 0 {
		log.Printf("[mcp] cleaned up %d expired context entries", removed)
	}
	return removed
}

// dispatch delivers a message to the relevant subscribers. Callbacks run
// outside the store lock against a snapshot, so delivery cannot deadlock
// with callbacks that re-enter the store.
func (s *ContextStore) dispatch(msg *models.Message) {
	s.mu.RLock()
	var targets []Subscriber
	if msg.ReceiverID != "" {
		targets = append(targets, s.subscribers[msg.ReceiverID]...)
	} else {
		for agentID, fns := range s.subscribers {
			if agentID == msg.SenderID {
				continue
			}
			targets = append(targets, fns...)
		}
	}
	s.mu.RUnlock()

	for _, fn := range targets {
		deliver(fn, msg)
	}
}

// deliver invokes one subscriber, isolating panics so a broken callback
// cannot abort delivery to the rest.
func deliver(fn Subscriber, msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[mcp] subscriber callback panicked on %s message %s: %v", msg.Type, msg.ID, r)
		}
	}()
	fn(msg)
}

// Counts returns the sizes of the store's collections for stats reporting:
// registered agents, unexpired shared entries, and retained messages.
func (s *ContextStore) Counts() (agents, contexts, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents), len(s.shared), len(s.messages)
}
