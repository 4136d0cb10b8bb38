// Package orchestrator owns the process-wide lifecycle: it wires the
// context store, the task network, and the agents together, starts and
// stops them in order, and exposes the system-level entry points.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/agents"
	"github.com/aimami-art/agentmesh/internal/ai"
	"github.com/aimami-art/agentmesh/internal/config"
	"github.com/aimami-art/agentmesh/internal/mcp"
	"github.com/aimami-art/agentmesh/internal/state"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// ErrNotRunning indicates an entry point was called while the
// orchestrator is stopped.
var ErrNotRunning = errors.New("orchestrator is not running")

// meshAgent is the common surface of the concrete agents.
type meshAgent interface {
	ID() string
	JoinNetwork(*a2a.Network) error
	Leave()
	Stats() a2a.AgentStats
}

// Orchestrator builds and runs the whole agent mesh. Dependencies flow
// one way: the context store, then the network on top of it, then the
// agents, then the coordinator.
type Orchestrator struct {
	cfg    *config.Config
	logger *DebugLogger

	svc     *mcp.Service
	network *a2a.Network
	db      *state.DB
	engine  *ai.Engine

	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	agents      map[string]meshAgent
	coordinator *agents.CoordinatorAgent
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithDebugLogger attaches a debug logger.
func WithDebugLogger(l *DebugLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New builds an orchestrator from configuration: context store service,
// network, analysis engine, and state store. Agents are created on
// Start so a stopped orchestrator can be restarted cleanly.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.svc = mcp.NewService(cfg.MCP.CleanupInterval)
	o.network = a2a.NewNetwork(o.svc.Store(), cfg.Scheduler.Tick)
	o.network.SetResultTTL(cfg.MCP.ResultTTL)

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state store: %w", err)
	}
	o.db = db

	o.engine = ai.NewEngine(o.buildCompleter())
	return o, nil
}

// buildCompleter creates the AI client when credentials are configured.
// Without credentials the engine runs on its deterministic analyzers.
func (o *Orchestrator) buildCompleter() ai.Completer {
	anthroCfg := o.cfg.Anthropic
	if anthroCfg.APIKey == "" && !anthroCfg.UseBedrock {
		log.Printf("[orchestrator] no AI credentials configured, analyses run locally")
		return nil
	}

	client, err := ai.NewClient(ai.ClientConfig{
		Model:         anthropic.Model(anthroCfg.Model),
		APIKey:        anthroCfg.APIKey,
		UseAWSBedrock: anthroCfg.UseBedrock,
		AWSRegion:     anthroCfg.AWSRegion,
		AWSProfile:    anthroCfg.AWSProfile,
	})
	if err != nil {
		log.Printf("[orchestrator] AI client unavailable, analyses run locally: %v", err)
		return nil
	}
	return client
}

// Start brings the mesh up: context store service, network scheduler,
// worker agents, coordinator. Idempotent. Any failure tears the partial
// system back down before returning.
func (o *Orchestrator) Start() error {
	// Claim the running state before building anything so a concurrent
	// Start cannot double-build the agents. A failed build releases the
	// claim through Stop.
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.startedAt = time.Now()
	o.mu.Unlock()

	log.Printf("[orchestrator] starting")
	o.logger.Log("start requested")

	o.svc.Start()
	o.network.Start()

	coordinator := agents.NewCoordinatorAgent("coordinator", o.cfg.Agents.CoordinatorMaxTasks)
	mesh := map[string]meshAgent{}
	for _, agent := range []meshAgent{
		agents.NewStrategyAgent("strategy_agent", o.engine, o.db, o.cfg.Agents.StrategyMaxTasks),
		agents.NewMarketAgent("market_agent", o.engine, o.db, o.cfg.Agents.MarketMaxTasks),
		agents.NewPerformanceAgent("performance_agent", o.cfg.Agents.PerformanceMaxTasks),
		coordinator,
	} {
		if err := agent.JoinNetwork(o.network); err != nil {
			o.mu.Lock()
			o.agents = mesh
			o.coordinator = coordinator
			o.mu.Unlock()
			o.Stop()
			return fmt.Errorf("start agent %s: %w", agent.ID(), err)
		}
		mesh[agent.ID()] = agent
	}

	o.mu.Lock()
	o.agents = mesh
	o.coordinator = coordinator
	o.mu.Unlock()

	log.Printf("[orchestrator] started with %d agents", len(mesh))
	return nil
}

// Stop tears the mesh down in reverse order: agents leave, then the
// scheduler and the cleanup loop stop. Idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	mesh := o.agents
	coordinator := o.coordinator
	o.agents = nil
	o.coordinator = nil
	o.mu.Unlock()

	log.Printf("[orchestrator] stopping")
	o.logger.Log("stop requested")

	if coordinator != nil {
		coordinator.Leave()
	}
	for id, agent := range mesh {
		if id == "coordinator" {
			continue
		}
		agent.Leave()
	}

	o.network.Stop()
	o.svc.Stop()
	log.Printf("[orchestrator] stopped")
}

// Close releases held resources. The orchestrator cannot be restarted
// after Close.
func (o *Orchestrator) Close() error {
	o.Stop()
	o.logger.Close()
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

// Running reports whether the mesh is up.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// DB exposes the state store, for seeding and CLI queries.
func (o *Orchestrator) DB() *state.DB {
	return o.db
}

// OrchestrateComprehensiveStrategy kicks off the comprehensive strategy
// workflow for a product and returns the coordination task ID.
func (o *Orchestrator) OrchestrateComprehensiveStrategy(productID string) (string, error) {
	coordinator, err := o.requireCoordinator()
	if err != nil {
		return "", err
	}
	return coordinator.OrchestrateComprehensiveStrategy(productID)
}

// CreateStrategyWithAgent submits a direct strategy generation task.
// Supplied analyses are injected so the agent builds on them instead of
// recomputing; with none, the agent runs the full pipeline itself.
// Returns the task ID.
func (o *Orchestrator) CreateStrategyWithAgent(productID string, analyses map[string]interface{}) (string, error) {
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return "", ErrNotRunning
	}

	input := map[string]interface{}{"product_id": productID}
	if len(analyses) > 0 {
		input["dependency_results"] = analyses
	}

	task := models.NewTask(uuid.New().String(), models.TaskTypeStrategyGeneration, "orchestrator")
	task.Priority = int(models.PriorityHigh)
	task.InputData = input
	return o.network.SubmitTask(task)
}

// GetAgentPerformance summarizes terminal task outcomes per agent.
func (o *Orchestrator) GetAgentPerformance() (map[string]interface{}, error) {
	coordinator, err := o.requireCoordinator()
	if err != nil {
		return nil, err
	}
	return coordinator.AgentPerformance(), nil
}

// MonitorSystemHealth reports aggregate system health.
func (o *Orchestrator) MonitorSystemHealth() (map[string]interface{}, error) {
	coordinator, err := o.requireCoordinator()
	if err != nil {
		return nil, err
	}
	return coordinator.MonitorSystem(), nil
}

// WaitForTask blocks until the task reaches a terminal status and
// returns its output. A failed task returns the recorded error.
func (o *Orchestrator) WaitForTask(ctx context.Context, taskID string) (map[string]interface{}, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		task, ok := o.network.GetTask(taskID)
		if !ok {
			return nil, fmt.Errorf("unknown task %s", taskID)
		}
		if task.Status.IsTerminal() {
			if task.Status == models.TaskStatusCompleted {
				return task.OutputData, nil
			}
			reason, _ := task.Metadata["error"].(string)
			return nil, fmt.Errorf("task %s %s: %s", taskID, task.Status, reason)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetSystemStatus aggregates store, network, agent, and workflow state.
func (o *Orchestrator) GetSystemStatus() map[string]interface{} {
	o.mu.Lock()
	running := o.running
	startedAt := o.startedAt
	mesh := o.agents
	coordinator := o.coordinator
	o.mu.Unlock()

	status := map[string]interface{}{
		"running":   running,
		"mcp":       o.svc.Stats(),
		"network":   o.network.Stats(),
		"agents":    map[string]a2a.AgentStats{},
		"workflows": map[string]interface{}{},
	}

	if running {
		status["uptime"] = time.Since(startedAt).Round(time.Second).String()
		agentStats := make(map[string]a2a.AgentStats, len(mesh))
		for id, agent := range mesh {
			agentStats[id] = agent.Stats()
		}
		status["agents"] = agentStats
	}
	if coordinator != nil {
		status["workflows"] = coordinator.CoordinatorStats()
		status["health"] = coordinator.MonitorSystem()["health"]
	} else {
		status["health"] = "stopped"
	}
	return status
}

func (o *Orchestrator) requireCoordinator() (*agents.CoordinatorAgent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running || o.coordinator == nil {
		return nil, ErrNotRunning
	}
	return o.coordinator, nil
}
