package mcp

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// DefaultCleanupInterval is how often the service sweeps expired data.
const DefaultCleanupInterval = 5 * time.Minute

// ServiceStats is a snapshot of the service for status reporting.
type ServiceStats struct {
	// ActiveAgents counts agents passing the active filter.
	ActiveAgents int `json:"active_agents"`
	// TotalAgents counts all registered agent records.
	TotalAgents int `json:"total_agents"`
	// SharedDataCount counts shared context entries.
	SharedDataCount int `json:"shared_data_count"`
	// MessageQueueSize counts retained messages.
	MessageQueueSize int `json:"message_queue_size"`
	// Status is "running" or "stopped".
	Status string `json:"status"`
}

// Service owns a ContextStore and its periodic cleanup loop.
// Start and Stop are idempotent; Stop leaves no goroutines behind.
type Service struct {
	store           *ContextStore
	cleanupInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a stopped service around a fresh store.
// A non-positive cleanupInterval falls back to the default.
func NewService(cleanupInterval time.Duration) *Service {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Service{
		store:           NewContextStore(),
		cleanupInterval: cleanupInterval,
	}
}

// Store returns the underlying context store.
func (s *Service) Store() *ContextStore {
	return s.store
}

// Running reports whether the service has been started.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the periodic cleanup loop. Safe to call twice.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.cleanupLoop(ctx)

	log.Printf("[mcp] service started (cleanup every %s)", s.cleanupInterval)
}

// Stop cancels the cleanup loop and waits for it to exit. Safe to call twice.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Printf("[mcp] service stopped")
}

// cleanupLoop sweeps expired entries until the context is cancelled.
func (s *Service) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.CleanupExpired()
		}
	}
}

// RegisterAgent creates and registers an active agent record.
func (s *Service) RegisterAgent(agentID, agentType string, capabilities models.CapabilitySet) *models.AgentInfo {
	info := models.NewAgentInfo(agentID, agentType, capabilities)
	s.store.RegisterAgent(info)
	return info
}

// Stats returns a snapshot of the service state.
func (s *Service) Stats() ServiceStats {
	agents, contexts, messages := s.store.Counts()

	status := "stopped"
	if s.Running() {
		status = "running"
	}

	return ServiceStats{
		ActiveAgents:     len(s.store.GetActiveAgents()),
		TotalAgents:      agents,
		SharedDataCount:  contexts,
		MessageQueueSize: messages,
		Status:           status,
	}
}
