package models

import "time"

// AgentStatus represents the operating state of an agent.
type AgentStatus string

const (
	// AgentStatusActive indicates the agent is registered and reachable.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusBusy indicates the agent has in-flight tasks.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusIdle indicates the agent is reachable with no tasks.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusOffline indicates the agent has left the system.
	// Agent records are never deleted during a run; they go offline.
	AgentStatusOffline AgentStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusBusy, AgentStatusIdle, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// IsAvailable returns true for statuses that count toward the active set.
func (s AgentStatus) IsAvailable() bool {
	switch s {
	case AgentStatusActive, AgentStatusBusy, AgentStatusIdle:
		return true
	default:
		return false
	}
}

// AgentInfo is the identity and runtime state of one agent as held by the
// context store. The agent itself and the task network mutate status and
// heartbeat through store operations only.
type AgentInfo struct {
	// ID is the unique agent identifier.
	ID string `json:"agent_id"`
	// Type is a free-form kind tag (e.g. "StrategyAgent").
	Type string `json:"agent_type"`
	// Capabilities is the set of work the agent can perform.
	Capabilities CapabilitySet `json:"capabilities"`
	// CurrentTasks holds the IDs of in-flight tasks.
	CurrentTasks map[string]struct{} `json:"current_tasks"`
	// Status is the operating state.
	Status AgentStatus `json:"status"`
	// MaxConcurrentTasks bounds the in-flight task count.
	MaxConcurrentTasks int `json:"max_concurrent_tasks"`
	// LastSeen is the most recent heartbeat.
	LastSeen time.Time `json:"last_seen"`
	// Metadata carries free-form agent details.
	Metadata map[string]interface{} `json:"metadata"`
}

// NewAgentInfo creates an active agent record with a current heartbeat.
func NewAgentInfo(id, agentType string, capabilities CapabilitySet) *AgentInfo {
	return &AgentInfo{
		ID:                 id,
		Type:               agentType,
		Capabilities:       capabilities,
		CurrentTasks:       make(map[string]struct{}),
		Status:             AgentStatusActive,
		MaxConcurrentTasks: 3,
		LastSeen:           time.Now(),
		Metadata:           make(map[string]interface{}),
	}
}

// Clone returns a deep copy so callers can read records without holding
// store locks.
func (a *AgentInfo) Clone() *AgentInfo {
	cp := *a
	cp.Capabilities = make(CapabilitySet, len(a.Capabilities))
	for c := range a.Capabilities {
		cp.Capabilities[c] = struct{}{}
	}
	cp.CurrentTasks = make(map[string]struct{}, len(a.CurrentTasks))
	for id := range a.CurrentTasks {
		cp.CurrentTasks[id] = struct{}{}
	}
	cp.Metadata = make(map[string]interface{}, len(a.Metadata))
	for k, v := range a.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
