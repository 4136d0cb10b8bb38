// Package a2a implements the agent-to-agent task network: a priority
// task queue with capability-based assignment and the base behavior
// shared by all agents on the network.
package a2a

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aimami-art/agentmesh/internal/mcp"
	"github.com/aimami-art/agentmesh/pkg/models"
)

const (
	// networkSenderID is the sender recorded on scheduler messages.
	networkSenderID = "a2a_network"

	// DefaultSchedulerTick is the assignment loop interval. One assignment
	// attempt per tick is the network's admission-control knob.
	DefaultSchedulerTick = 5 * time.Second

	// schedulerBackoff is how long the loop pauses after an internal error.
	schedulerBackoff = 10 * time.Second

	// DefaultTaskResultTTL bounds how long published task results stay
	// shareable when no override is configured.
	DefaultTaskResultTTL = 120 * time.Minute
)

// AgentHandle is the network's scheduling view of a registered agent.
// The network never drives agent lifecycle through this interface; it
// only reads capability and load to pick an assignee.
type AgentHandle interface {
	// ID returns the unique agent identifier.
	ID() string
	// CanHandle reports whether the agent declares the capability
	// required for the given task type.
	CanHandle(models.TaskType) bool
	// InFlightCount returns the number of tasks the agent is executing.
	InFlightCount() int
	// MaxConcurrentTasks returns the agent's concurrency bound.
	MaxConcurrentTasks() int
	// Status returns the agent's operating status.
	Status() models.AgentStatus
}

// NetworkStats is a snapshot of the network for status reporting.
type NetworkStats struct {
	// TotalAgents counts registered agents.
	TotalAgents int `json:"total_agents"`
	// ActiveAgents counts registered agents that are not offline.
	ActiveAgents int `json:"active_agents"`
	// TotalTasks counts all tasks ever submitted this run.
	TotalTasks int `json:"total_tasks"`
	// PendingTasks counts tasks waiting in the queue.
	PendingTasks int `json:"pending_tasks"`
	// TaskStats counts tasks by status.
	TaskStats map[string]int `json:"task_stats"`
	// Status is "running" or "stopped".
	Status string `json:"network_status"`
}

// Network is the capability-matched, priority-ordered task distributor.
// It exclusively owns task lifecycle transitions.
type Network struct {
	store *mcp.ContextStore
	tick  time.Duration

	mu sync.Mutex
	// resultTTL is how long completed task results stay in the store.
	resultTTL time.Duration
	// tasks maps task ID to the task record.
	tasks map[string]*models.Task
	// pending is the queue of unassigned task IDs, priority-descending,
	// insertion order within equal priority.
	pending []string
	// agents maps agent ID to its scheduling handle.
	agents map[string]AgentHandle

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewNetwork creates a stopped network dispatching over the given store.
// A non-positive tick falls back to the default.
func NewNetwork(store *mcp.ContextStore, tick time.Duration) *Network {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	return &Network{
		store:     store,
		tick:      tick,
		resultTTL: DefaultTaskResultTTL,
		tasks:     make(map[string]*models.Task),
		agents:    make(map[string]AgentHandle),
	}
}

// SetResultTTL overrides how long published task results stay shareable.
// Non-positive values keep the current TTL.
func (n *Network) SetResultTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resultTTL = d
}

// Store returns the context store the network dispatches over.
func (n *Network) Store() *mcp.ContextStore {
	return n.store
}

// Running reports whether the scheduler loop is active.
func (n *Network) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// Start launches the scheduler loop. Safe to call twice.
func (n *Network) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.wg.Add(1)
	go n.schedulerLoop(ctx)

	log.Printf("[a2a] network started (scheduler tick %s)", n.tick)
}

// Stop cancels the scheduler loop and waits for it. Safe to call twice.
func (n *Network) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	cancel()
	n.wg.Wait()
	log.Printf("[a2a] network stopped")
}

// RegisterAgent adds an agent handle to the scheduling registry.
func (n *Network) RegisterAgent(agent AgentHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.agents[agent.ID()] = agent
	log.Printf("[a2a] agent registered: %s", agent.ID())
}

// SubmitTask inserts the task into the queue and re-sorts the pending
// list by descending priority, ties keeping insertion order. It returns
// immediately; assignment happens on a later scheduler tick.
func (n *Network) SubmitTask(task *models.Task) (string, error) {
	if task.ID == "" {
		return "", fmt.Errorf("submit task: missing task ID")
	}
	if !task.Type.Valid() {
		return "", fmt.Errorf("submit task %s: unknown task type %q", task.ID, task.Type)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.tasks[task.ID] = task
	n.pending = append(n.pending, task.ID)
	sort.SliceStable(n.pending, func(i, j int) bool {
		return n.tasks[n.pending[i]].Priority > n.tasks[n.pending[j]].Priority
	})

	log.Printf("[a2a] task submitted: %s (%s, priority %d)", task.ID, task.Type, task.Priority)
	return task.ID, nil
}

// GetTask returns a task by ID, or false if unknown.
func (n *Network) GetTask(taskID string) (*models.Task, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	task, ok := n.tasks[taskID]
	return task, ok
}

// UpdateTaskStatus transitions a task's status. Transitions out of a
// terminal state are refused. A transition to in_progress checks the task
// out of the pending list; a non-empty assignee records the assignment.
// Returns false if the task is unknown or the transition is refused.
func (n *Network) UpdateTaskStatus(taskID string, status models.TaskStatus, assigneeID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	task, ok := n.tasks[taskID]
	if !ok {
		return false
	}
	if task.Status.IsTerminal() {
		return false
	}

	task.Status = status
	if assigneeID != "" {
		task.AssigneeID = assigneeID
		now := time.Now()
		task.AssignedAt = &now
	}

	if status == models.TaskStatusInProgress {
		n.removePendingLocked(taskID)
	}
	return true
}

// CompleteTask marks the task completed, stores its output, and publishes
// the result into the context store under task_result_<id> so downstream
// agents can discover it. Refused for unknown or already-terminal tasks.
func (n *Network) CompleteTask(taskID string, result map[string]interface{}) bool {
	n.mu.Lock()
	task, ok := n.tasks[taskID]
	if !ok || task.Status.IsTerminal() {
		n.mu.Unlock()
		return false
	}

	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.OutputData = result
	task.CompletedAt = &now
	n.removePendingLocked(taskID)
	assignee := task.AssigneeID
	ttl := n.resultTTL
	n.mu.Unlock()

	log.Printf("[a2a] task completed: %s", taskID)
	n.store.ShareContext(assignee, "task_result_"+taskID, result, ttl)
	return true
}

// FailTask marks the task failed and records the error in its metadata.
// Failed tasks are not retried automatically; the workflow layer decides
// about re-submission. Refused for unknown or already-terminal tasks.
func (n *Network) FailTask(taskID string, taskErr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	task, ok := n.tasks[taskID]
	if !ok || task.Status.IsTerminal() {
		return false
	}

	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.Metadata["error"] = taskErr
	task.CompletedAt = &now
	n.removePendingLocked(taskID)

	log.Printf("[a2a] task failed: %s - %s", taskID, taskErr)
	return true
}

// removePendingLocked drops a task ID from the pending list.
// Caller must hold n.mu.
func (n *Network) removePendingLocked(taskID string) {
	for i, id := range n.pending {
		if id == taskID {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			return
		}
	}
}

// schedulerLoop runs assignment attempts until the context is cancelled.
// An error in the loop's own logic backs off instead of killing the loop.
func (n *Network) schedulerLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.assignPendingTasks(); err != nil {
				log.Printf("[a2a] scheduler error: %v (backing off %s)", err, schedulerBackoff)
				select {
				case <-ctx.Done():
					return
				case <-time.After(schedulerBackoff):
				}
			}
		}
	}
}

// AssignPendingTasks runs a single assignment attempt, considering only
// the head of the pending list. Exported so tests and embedded setups can
// drive the scheduler without waiting for ticks.
func (n *Network) AssignPendingTasks() error {
	return n.assignPendingTasks()
}

// assignPendingTasks picks the highest-priority pending task and, among
// the capable agents below capacity and not offline, offers it to the one
// with the fewest in-flight tasks. With no suitable agent the task stays
// queued for the next tick.
func (n *Network) assignPendingTasks() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assignment panic: %v", r)
		}
	}()

	// Snapshot the head task and the agent handles; agent methods take the
	// agents' own locks, so they are never called under n.mu.
	n.mu.Lock()
	if len(n.pending) == 0 {
		n.mu.Unlock()
		return nil
	}
	taskID := n.pending[0]
	task, ok := n.tasks[taskID]
	if !ok {
		// Stale queue entry; drop it rather than stall the head.
		n.removePendingLocked(taskID)
		n.mu.Unlock()
		return fmt.Errorf("pending task %s missing from task map", taskID)
	}
	taskType := task.Type
	handles := make([]AgentHandle, 0, len(n.agents))
	for _, agent := range n.agents {
		handles = append(handles, agent)
	}
	n.mu.Unlock()

	var selected AgentHandle
	for _, agent := range handles {
		if !agent.CanHandle(taskType) {
			continue
		}
		if agent.Status() == models.AgentStatusOffline {
			continue
		}
		if agent.InFlightCount() >= agent.MaxConcurrentTasks() {
			continue
		}
		if selected == nil || agent.InFlightCount() < selected.InFlightCount() {
			selected = agent
		}
	}
	if selected == nil {
		return nil
	}

	// Re-check under the lock: the task may have been checked out or
	// finished while agents were being evaluated.
	n.mu.Lock()
	task, ok = n.tasks[taskID]
	if !ok || task.Status.IsTerminal() || task.Status == models.TaskStatusInProgress {
		n.mu.Unlock()
		return nil
	}
	task.Status = models.TaskStatusAssigned
	payload := map[string]interface{}{
		"task_id":    task.ID,
		"task_type":  string(task.Type),
		"input_data": task.InputData,
		"priority":   task.Priority,
	}
	if task.Deadline != nil {
		payload["deadline"] = task.Deadline.Format(time.RFC3339)
	}
	priority := task.Priority
	n.mu.Unlock()

	msg := models.NewMessage(models.MessageTypeTaskAssign, networkSenderID, selected.ID(), payload)
	msg.Priority = models.Priority(priority)
	n.store.SendMessage(msg)
	return nil
}

// PendingTaskIDs returns a copy of the pending queue in scheduling order.
func (n *Network) PendingTaskIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.pending))
	copy(out, n.pending)
	return out
}

// Tasks returns a snapshot of every task the network has accepted.
func (n *Network) Tasks() []*models.Task {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*models.Task, 0, len(n.tasks))
	for _, task := range n.tasks {
		out = append(out, task)
	}
	return out
}

// Stats returns a snapshot of the network state.
func (n *Network) Stats() NetworkStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	active := 0
	for _, agent := range n.agents {
		if agent.Status() != models.AgentStatusOffline {
			active++
		}
	}

	taskStats := make(map[string]int, len(models.AllTaskStatuses))
	for _, status := range models.AllTaskStatuses {
		taskStats[string(status)] = 0
	}
	for _, task := range n.tasks {
		taskStats[string(task.Status)]++
	}

	status := "stopped"
	if n.running {
		status = "running"
	}

	return NetworkStats{
		TotalAgents:  len(n.agents),
		ActiveAgents: active,
		TotalTasks:   len(n.tasks),
		PendingTasks: len(n.pending),
		TaskStats:    taskStats,
		Status:       status,
	}
}
