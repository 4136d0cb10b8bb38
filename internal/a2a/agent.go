package a2a

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// TaskHandler executes one task type and returns the task output.
// Handlers run in their own goroutine; a returned error or a panic marks
// the task failed without touching other tasks or the scheduler.
type TaskHandler func(ctx context.Context, task *models.Task) (map[string]interface{}, error)

// Agent is the base behavior shared by all agents on the network:
// capability declaration, bounded concurrent execution, and
// message-driven task intake. Concrete agents are built by registering
// task handlers rather than overriding methods.
type Agent struct {
	id            string
	agentType     string
	capabilities  models.CapabilitySet
	maxConcurrent int

	// handlers dispatches execution by task type.
	handlers map[models.TaskType]TaskHandler
	// defaultHandler runs for task types without a dedicated handler.
	defaultHandler TaskHandler
	// coordinationHook, if set, observes coordination messages.
	coordinationHook func(*models.Message)

	mu       sync.Mutex
	network  *Network
	inFlight map[string]struct{}
	status   models.AgentStatus

	// execWG tracks in-flight executions so they are supervised handles,
	// not fire-and-forget goroutines.
	execWG sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// AgentStats is a per-agent snapshot for status reporting.
type AgentStats struct {
	// ID is the agent identifier.
	ID string `json:"agent_id"`
	// Type is the agent kind tag.
	Type string `json:"agent_type"`
	// Status is the current operating status.
	Status models.AgentStatus `json:"status"`
	// CurrentTasks counts in-flight tasks.
	CurrentTasks int `json:"current_tasks"`
	// MaxConcurrentTasks is the concurrency bound.
	MaxConcurrentTasks int `json:"max_concurrent_tasks"`
	// Capabilities lists the declared capabilities.
	Capabilities []string `json:"capabilities"`
}

// NewAgent creates an idle agent with the given identity and capacity.
func NewAgent(id, agentType string, capabilities models.CapabilitySet, maxConcurrent int) *Agent {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Agent{
		id:            id,
		agentType:     agentType,
		capabilities:  capabilities,
		maxConcurrent: maxConcurrent,
		handlers:      make(map[models.TaskType]TaskHandler),
		inFlight:      make(map[string]struct{}),
		status:        models.AgentStatusIdle,
	}
}

// ID returns the unique agent identifier.
func (a *Agent) ID() string { return a.id }

// Type returns the agent kind tag.
func (a *Agent) Type() string { return a.agentType }

// Status returns the agent's operating status.
func (a *Agent) Status() models.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// InFlightCount returns the number of tasks the agent is executing.
func (a *Agent) InFlightCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inFlight)
}

// MaxConcurrentTasks returns the agent's concurrency bound.
func (a *Agent) MaxConcurrentTasks() int { return a.maxConcurrent }

// CanHandle reports whether the agent declares the capability required
// for the given task type.
func (a *Agent) CanHandle(taskType models.TaskType) bool {
	return a.capabilities.CanHandle(taskType)
}

// RegisterHandler installs the executor for one task type.
func (a *Agent) RegisterHandler(taskType models.TaskType, fn TaskHandler) {
	a.handlers[taskType] = fn
}

// SetDefaultHandler installs the executor for task types without a
// dedicated handler.
func (a *Agent) SetDefaultHandler(fn TaskHandler) {
	a.defaultHandler = fn
}

// SetCoordinationHook installs an observer for coordination messages.
func (a *Agent) SetCoordinationHook(fn func(*models.Message)) {
	a.coordinationHook = fn
}

// JoinNetwork registers the agent with the network's scheduler, with the
// context store (identity and capabilities), and subscribes to the bus
// for its own ID.
func (a *Agent) JoinNetwork(network *Network) error {
	a.mu.Lock()
	if a.network != nil {
		a.mu.Unlock()
		return fmt.Errorf("agent %s already joined a network", a.id)
	}
	a.network = network
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.mu.Unlock()

	network.RegisterAgent(a)

	info := models.NewAgentInfo(a.id, a.agentType, a.capabilities)
	info.MaxConcurrentTasks = a.maxConcurrent
	network.Store().RegisterAgent(info)

	network.Store().Subscribe(a.id, a.handleMessage)

	log.Printf("[agent] %s joined the network", a.id)
	return nil
}

// Network returns the joined network, nil before JoinNetwork.
func (a *Agent) Network() *Network {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.network
}

// Leave marks the agent offline and cancels in-flight executions,
// waiting for them to wind down. The agent record stays registered.
func (a *Agent) Leave() {
	a.mu.Lock()
	network := a.network
	cancel := a.cancel
	a.status = models.AgentStatusOffline
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.execWG.Wait()

	if network != nil {
		network.Store().UpdateAgentStatus(a.id, models.AgentStatusOffline, nil)
	}
}

// handleMessage dispatches bus messages to the agent's behaviors.
func (a *Agent) handleMessage(msg *models.Message) {
	switch msg.Type {
	case models.MessageTypeTaskAssign:
		a.handleTaskAssign(msg)
	case models.MessageTypeContextShare:
		log.Printf("[agent] %s saw shared context: %v", a.id, msg.Payload["context_key"])
	case models.MessageTypeCoordination:
		if a.coordinationHook != nil {
			a.coordinationHook(msg)
		}
	}
}

// handleTaskAssign accepts the offered task when below capacity, marking
// it in_progress and starting execution. Over capacity the offer is
// declined by doing nothing: the task stays queued and the scheduler
// retries on a later tick.
func (a *Agent) handleTaskAssign(msg *models.Message) {
	taskID, _ := msg.Payload["task_id"].(string)
	if taskID == "" {
		return
	}

	a.mu.Lock()
	network := a.network
	atCapacity := len(a.inFlight) >= a.maxConcurrent
	a.mu.Unlock()

	if network == nil {
		return
	}
	if atCapacity {
		log.Printf("[agent] %s declined task %s: at capacity", a.id, taskID)
		return
	}

	task, ok := network.GetTask(taskID)
	if !ok || task.Status.IsTerminal() || task.Status == models.TaskStatusInProgress {
		return
	}

	// Re-check capacity while claiming the slot; another assignment may
	// have landed between the two critical sections.
	a.mu.Lock()
	if len(a.inFlight) >= a.maxConcurrent || a.status == models.AgentStatusOffline {
		a.mu.Unlock()
		log.Printf("[agent] %s declined task %s: at capacity", a.id, taskID)
		return
	}
	a.inFlight[taskID] = struct{}{}
	a.status = models.AgentStatusBusy
	ctx := a.ctx
	a.mu.Unlock()

	network.UpdateTaskStatus(taskID, models.TaskStatusInProgress, a.id)
	network.Store().UpdateAgentStatus(a.id, models.AgentStatusBusy, nil)

	a.execWG.Add(1)
	go a.execute(ctx, task)
}

// execute runs the task handler and reports exactly one terminal outcome.
// Panics are recovered and recorded as failures so one broken handler
// never takes down the agent or the scheduler.
func (a *Agent) execute(ctx context.Context, task *models.Task) {
	defer a.execWG.Done()

	var result map[string]interface{}
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task handler panic: %v", r)
			}
		}()
		handler, ok := a.handlers[task.Type]
		if !ok {
			handler = a.defaultHandler
		}
		if handler == nil {
			err = fmt.Errorf("no handler for task type %s", task.Type)
			return
		}
		result, err = handler(ctx, task)
	}()

	a.mu.Lock()
	network := a.network
	a.mu.Unlock()

	if err != nil {
		log.Printf("[agent] %s task %s failed: %v", a.id, task.ID, err)
		network.FailTask(task.ID, err.Error())
	} else {
		network.CompleteTask(task.ID, result)
	}

	a.finishTask(task.ID)
}

// finishTask drops the task from the in-flight set and flips the agent
// back to idle when nothing remains.
func (a *Agent) finishTask(taskID string) {
	a.mu.Lock()
	delete(a.inFlight, taskID)
	idle := len(a.inFlight) == 0 && a.status != models.AgentStatusOffline
	if idle {
		a.status = models.AgentStatusIdle
	}
	network := a.network
	a.mu.Unlock()

	if idle && network != nil {
		network.Store().UpdateAgentStatus(a.id, models.AgentStatusIdle, nil)
	}
}

// RequestTask submits a new task to the joined network on behalf of this
// agent. Agents are producers as well as consumers.
func (a *Agent) RequestTask(taskType models.TaskType, input map[string]interface{}, priority models.Priority, deadline *time.Time) (string, error) {
	a.mu.Lock()
	network := a.network
	a.mu.Unlock()
	if network == nil {
		return "", fmt.Errorf("agent %s has not joined a network", a.id)
	}

	task := models.NewTask(uuid.New().String(), taskType, a.id)
	task.Priority = int(priority)
	task.InputData = input
	task.Deadline = deadline
	return network.SubmitTask(task)
}

// Stats returns a per-agent snapshot.
func (a *Agent) Stats() AgentStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AgentStats{
		ID:                 a.id,
		Type:               a.agentType,
		Status:             a.status,
		CurrentTasks:       len(a.inFlight),
		MaxConcurrentTasks: a.maxConcurrent,
		Capabilities:       a.capabilities.List(),
	}
}
