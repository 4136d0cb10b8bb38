package agents

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/graph"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// defaultPollInterval is how often running workflows check their
// constituent tasks.
const defaultPollInterval = 200 * time.Millisecond

// CoordinatorAgent runs multi-task workflows: it expands a workflow
// plan into network tasks, submits each task only once its dependencies
// have completed, and aggregates the results. It also answers
// system-level coordination requests (resource allocation, monitoring,
// agent performance).
type CoordinatorAgent struct {
	*a2a.Agent

	templates    map[string]WorkflowTemplate
	pollInterval time.Duration

	mu        sync.Mutex
	workflows map[string]*models.Workflow
}

// NewCoordinatorAgent creates a coordinator with the built-in workflow
// plans.
func NewCoordinatorAgent(id string, maxTasks int) *CoordinatorAgent {
	c := &CoordinatorAgent{
		Agent: a2a.NewAgent(id, "CoordinatorAgent", models.NewCapabilitySet(
			models.CapabilityCoordination,
			models.CapabilityTaskOrchestration,
			models.CapabilityResourceManagement,
			models.CapabilityWorkflowManagement,
			models.CapabilitySystemMonitoring,
		), maxTasks),
		templates:    BuiltinTemplates(),
		pollInterval: defaultPollInterval,
	}
	c.workflows = make(map[string]*models.Workflow)

	c.RegisterHandler(models.TaskTypeCoordination, c.handleCoordination)
	return c
}

// SetTemplates replaces the coordinator's workflow plans.
func (c *CoordinatorAgent) SetTemplates(templates map[string]WorkflowTemplate) {
	c.templates = templates
}

// SetPollInterval adjusts how often workflows poll their tasks.
func (c *CoordinatorAgent) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// handleCoordination dispatches a coordination task by its action.
func (c *CoordinatorAgent) handleCoordination(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	action, _ := task.InputData["action"].(string)
	switch action {
	case "", "run_workflow":
		workflowType, _ := task.InputData["workflow_type"].(string)
		if workflowType == "" {
			workflowType = WorkflowComprehensiveStrategy
		}
		return c.RunWorkflow(ctx, workflowType, task.InputData)
	case "allocate_resources":
		return c.AllocateResources(), nil
	case "monitor_system":
		return c.MonitorSystem(), nil
	case "agent_performance":
		return c.AgentPerformance(), nil
	default:
		return nil, fmt.Errorf("unknown coordination action %q", action)
	}
}

// OrchestrateComprehensiveStrategy submits a coordination task that
// runs the comprehensive strategy workflow for the product. Returns the
// coordination task ID.
func (c *CoordinatorAgent) OrchestrateComprehensiveStrategy(productID string) (string, error) {
	return c.RequestTask(models.TaskTypeCoordination, map[string]interface{}{
		"action":        "run_workflow",
		"workflow_type": WorkflowComprehensiveStrategy,
		"product_id":    productID,
	}, models.PriorityHigh, nil)
}

// RunWorkflow executes the named workflow plan to settlement and
// returns its aggregate result. Entries in baseInput (minus the
// coordination bookkeeping keys) are passed to every task.
func (c *CoordinatorAgent) RunWorkflow(ctx context.Context, workflowType string, baseInput map[string]interface{}) (map[string]interface{}, error) {
	tmpl, ok := c.templates[workflowType]
	if !ok {
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}
	network := c.Network()
	if network == nil {
		return nil, fmt.Errorf("coordinator has not joined a network")
	}

	g := graph.New()
	if err := g.Build(tmpl.Tasks); err != nil {
		return nil, fmt.Errorf("workflow %s plan: %w", workflowType, err)
	}

	wf := models.NewWorkflow(uuid.New().String(), workflowType, tmpl.Tasks)
	c.mu.Lock()
	c.workflows[wf.ID] = wf
	c.mu.Unlock()

	log.Printf("[coordinator] workflow %s started: %s (%d tasks)", wf.ID, workflowType, len(tmpl.Tasks))

	specTask := make(map[string]string)     // spec name -> task ID
	settled := make(map[string]bool)        // spec name -> reached a disposition
	results := make(map[string]interface{}) // spec name -> output
	var failures []string

	for {
		// Submit every spec whose dependencies have completed.
		for _, spec := range g.Ready() {
			if _, submitted := specTask[spec.Name]; submitted {
				continue
			}
			taskID, err := c.submitSpecTask(network, wf, spec, baseInput, specTask)
			if err != nil {
				log.Printf("[coordinator] workflow %s: submit %s failed: %v", wf.ID, spec.Name, err)
				for _, name := range append(g.MarkFailed(spec.Name), spec.Name) {
					if !settled[name] {
						settled[name] = true
						failures = append(failures, name)
					}
				}
				continue
			}
			specTask[spec.Name] = taskID
		}

		// Observe task transitions and update the graph.
		for name, taskID := range specTask {
			if settled[name] {
				continue
			}
			task, ok := network.GetTask(taskID)
			if !ok {
				continue
			}
			c.updateTracking(wf, taskID, task.Status)
			if !task.Status.IsTerminal() {
				continue
			}

			settled[name] = true
			if task.Status == models.TaskStatusCompleted {
				g.MarkComplete(name)
				results[name] = task.OutputData
			} else {
				failures = append(failures, name)
				for _, abandoned := range g.MarkFailed(name) {
					if !settled[abandoned] {
						settled[abandoned] = true
						failures = append(failures, abandoned)
					}
				}
				log.Printf("[coordinator] workflow %s: task %s failed, abandoning dependents", wf.ID, name)
			}
			c.recomputeProgress(wf, len(settled), len(tmpl.Tasks), g.Settled(), len(failures) == 0)
		}

		if g.Settled() {
			break
		}

		select {
		case <-ctx.Done():
			c.mu.Lock()
			wf.Status = models.WorkflowStatusFailed
			c.mu.Unlock()
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	c.mu.Lock()
	status := wf.Status
	progress := wf.Progress
	c.mu.Unlock()
	log.Printf("[coordinator] workflow %s settled: %s", wf.ID, status)

	return map[string]interface{}{
		"workflow_id":   wf.ID,
		"workflow_type": workflowType,
		"status":        string(status),
		"progress":      progress,
		"results":       results,
		"failed_tasks":  failures,
	}, nil
}

// submitSpecTask turns one plan spec into a network task, injecting the
// completed dependency outputs into its input.
func (c *CoordinatorAgent) submitSpecTask(network *a2a.Network, wf *models.Workflow, spec models.WorkflowTaskSpec, baseInput map[string]interface{}, specTask map[string]string) (string, error) {
	input := make(map[string]interface{})
	for k, v := range baseInput {
		if k == "action" || k == "workflow_type" {
			continue
		}
		input[k] = v
	}
	for k, v := range spec.InputData {
		input[k] = v
	}
	input["workflow_id"] = wf.ID

	if len(spec.Dependencies) > 0 {
		depResults := make(map[string]interface{}, len(spec.Dependencies))
		for _, dep := range spec.Dependencies {
			if depTaskID, ok := specTask[dep]; ok {
				if depTask, ok := network.GetTask(depTaskID); ok {
					depResults[dep] = depTask.OutputData
				}
			}
		}
		input["dependency_results"] = depResults
	}

	task := models.NewTask(uuid.New().String(), spec.Type, c.ID())
	task.Priority = spec.Priority
	task.InputData = input
	for _, dep := range spec.Dependencies {
		task.Dependencies = append(task.Dependencies, specTask[dep])
	}

	taskID, err := network.SubmitTask(task)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	wf.Tasks[taskID] = &models.WorkflowTaskTracking{
		SpecName:    spec.Name,
		TaskID:      taskID,
		Status:      "submitted",
		SubmittedAt: time.Now(),
	}
	c.mu.Unlock()
	return taskID, nil
}

// updateTracking mirrors the observed task status into the workflow.
func (c *CoordinatorAgent) updateTracking(wf *models.Workflow, taskID string, status models.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := wf.Tasks[taskID]; ok {
		entry.Status = string(status)
	}
}

// recomputeProgress updates workflow progress on each constituent
// terminal transition, and settles the aggregate status once every spec
// has a disposition.
func (c *CoordinatorAgent) recomputeProgress(wf *models.Workflow, settledCount, total int, allSettled, clean bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total > 0 {
		wf.Progress = settledCount * 100 / total
	}
	if allSettled {
		if clean {
			wf.Status = models.WorkflowStatusCompleted
		} else {
			wf.Status = models.WorkflowStatusFailed
		}
	}
}

// GetWorkflow returns a snapshot of one workflow.
func (c *CoordinatorAgent) GetWorkflow(id string) (*models.Workflow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.workflows[id]
	if !ok {
		return nil, false
	}
	return cloneWorkflow(wf), true
}

// ListWorkflows returns snapshots of every workflow the coordinator has
// accepted.
func (c *CoordinatorAgent) ListWorkflows() []*models.Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Workflow, 0, len(c.workflows))
	for _, wf := range c.workflows {
		out = append(out, cloneWorkflow(wf))
	}
	return out
}

func cloneWorkflow(wf *models.Workflow) *models.Workflow {
	clone := *wf
	clone.Tasks = make(map[string]*models.WorkflowTaskTracking, len(wf.Tasks))
	for id, entry := range wf.Tasks {
		e := *entry
		clone.Tasks[id] = &e
	}
	return &clone
}

// AllocateResources reports per-agent load against capacity.
func (c *CoordinatorAgent) AllocateResources() map[string]interface{} {
	network := c.Network()
	if network == nil {
		return map[string]interface{}{"agents": map[string]interface{}{}}
	}

	allocation := make(map[string]interface{})
	for _, info := range network.Store().GetActiveAgents() {
		capacity := info.MaxConcurrentTasks
		load := len(info.CurrentTasks)
		headroom := capacity - load
		if headroom < 0 {
			headroom = 0
		}
		allocation[info.ID] = map[string]interface{}{
			"agent_type": info.Type,
			"load":       load,
			"capacity":   capacity,
			"headroom":   headroom,
		}
	}
	return map[string]interface{}{
		"agents":       allocation,
		"allocated_at": time.Now().UTC().Format(time.RFC3339),
	}
}

// MonitorSystem aggregates context store and network statistics into a
// health report.
func (c *CoordinatorAgent) MonitorSystem() map[string]interface{} {
	network := c.Network()
	if network == nil {
		return map[string]interface{}{"health": "unknown"}
	}

	stats := network.Stats()
	health := "healthy"
	if stats.ActiveAgents == 0 {
		health = "degraded"
	} else if stats.PendingTasks > stats.ActiveAgents*5 {
		health = "backlogged"
	}

	return map[string]interface{}{
		"health":        health,
		"network":       stats,
		"observed_at":   time.Now().UTC().Format(time.RFC3339),
		"active_agents": stats.ActiveAgents,
		"pending_tasks": stats.PendingTasks,
	}
}

// AgentPerformance summarizes terminal task outcomes per assignee.
func (c *CoordinatorAgent) AgentPerformance() map[string]interface{} {
	network := c.Network()
	if network == nil {
		return map[string]interface{}{"agents": map[string]interface{}{}}
	}

	type tally struct{ completed, failed int }
	tallies := make(map[string]*tally)
	for _, task := range network.Tasks() {
		if task.AssigneeID == "" || !task.Status.IsTerminal() {
			continue
		}
		t, ok := tallies[task.AssigneeID]
		if !ok {
			t = &tally{}
			tallies[task.AssigneeID] = t
		}
		if task.Status == models.TaskStatusCompleted {
			t.completed++
		} else {
			t.failed++
		}
	}

	agents := make(map[string]interface{}, len(tallies))
	for id, t := range tallies {
		total := t.completed + t.failed
		successRate := 0.0
		if total > 0 {
			successRate = float64(t.completed) / float64(total)
		}
		agents[id] = map[string]interface{}{
			"completed":    t.completed,
			"failed":       t.failed,
			"success_rate": successRate,
		}
	}
	return map[string]interface{}{
		"agents":      agents,
		"observed_at": time.Now().UTC().Format(time.RFC3339),
	}
}

// CoordinatorStats summarizes the coordinator's workflows.
func (c *CoordinatorAgent) CoordinatorStats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	var active, completed, failed int
	for _, wf := range c.workflows {
		switch wf.Status {
		case models.WorkflowStatusActive:
			active++
		case models.WorkflowStatusCompleted:
			completed++
		case models.WorkflowStatusFailed:
			failed++
		}
	}
	return map[string]interface{}{
		"total_workflows":     len(c.workflows),
		"active_workflows":    active,
		"completed_workflows": completed,
		"failed_workflows":    failed,
	}
}
