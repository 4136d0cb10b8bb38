package a2a

import (
	"context"
	"testing"
	"time"

	"github.com/aimami-art/agentmesh/internal/mcp"
	"github.com/aimami-art/agentmesh/pkg/models"
)

func newTestNetwork() *Network {
	return NewNetwork(mcp.NewContextStore(), time.Hour)
}

func submitTask(t *testing.T, n *Network, id string, taskType models.TaskType, priority int) *models.Task {
	t.Helper()
	task := models.NewTask(id, taskType, "tester")
	task.Priority = priority
	if _, err := n.SubmitTask(task); err != nil {
		t.Fatalf("SubmitTask(%s): %v", id, err)
	}
	return task
}

func TestNetwork_SubmitTaskPriorityOrder(t *testing.T) {
	n := newTestNetwork()

	submitTask(t, n, "low", models.TaskTypeMarketAnalysis, 1)
	submitTask(t, n, "high", models.TaskTypeMarketAnalysis, 3)
	submitTask(t, n, "medium", models.TaskTypeMarketAnalysis, 2)

	got := n.PendingTaskIDs()
	want := []string{"high", "medium", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pending order = %v, want %v", got, want)
		}
	}
}

func TestNetwork_SubmitTaskStableTies(t *testing.T) {
	n := newTestNetwork()

	submitTask(t, n, "first", models.TaskTypeMarketAnalysis, 2)
	submitTask(t, n, "second", models.TaskTypeMarketAnalysis, 2)
	submitTask(t, n, "third", models.TaskTypeMarketAnalysis, 2)

	got := n.PendingTaskIDs()
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("equal-priority order = %v, want insertion order %v", got, want)
		}
	}
}

func TestNetwork_SubmitTaskValidation(t *testing.T) {
	n := newTestNetwork()

	if _, err := n.SubmitTask(&models.Task{Type: models.TaskTypeCoordination}); err == nil {
		t.Error("task without ID should be rejected")
	}

	task := models.NewTask("t1", models.TaskType("bogus"), "tester")
	if _, err := n.SubmitTask(task); err == nil {
		t.Error("task with unknown type should be rejected")
	}
}

func TestNetwork_UpdateTaskStatus(t *testing.T) {
	n := newTestNetwork()
	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)

	if !n.UpdateTaskStatus("t1", models.TaskStatusInProgress, "agent-1") {
		t.Fatal("transition to in_progress should succeed")
	}

	task, _ := n.GetTask("t1")
	if task.AssigneeID != "agent-1" {
		t.Errorf("assignee = %q, want agent-1", task.AssigneeID)
	}
	if task.AssignedAt == nil {
		t.Error("assigned-at should be recorded")
	}
	if len(n.PendingTaskIDs()) != 0 {
		t.Error("in_progress task must leave the pending list")
	}

	if n.UpdateTaskStatus("ghost", models.TaskStatusInProgress, "") {
		t.Error("unknown task should return false")
	}
}

func TestNetwork_TerminalStatesImmutable(t *testing.T) {
	n := newTestNetwork()
	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)

	if !n.CompleteTask("t1", map[string]interface{}{"ok": true}) {
		t.Fatal("first completion should succeed")
	}

	if n.FailTask("t1", "late error") {
		t.Error("fail after completion must be refused")
	}
	if n.CompleteTask("t1", nil) {
		t.Error("double completion must be refused")
	}
	if n.UpdateTaskStatus("t1", models.TaskStatusPending, "") {
		t.Error("transition out of terminal state must be refused")
	}

	task, _ := n.GetTask("t1")
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed to stick", task.Status)
	}
}

func TestNetwork_CompleteTaskPublishesResult(t *testing.T) {
	n := newTestNetwork()
	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)
	n.UpdateTaskStatus("t1", models.TaskStatusInProgress, "agent-1")

	result := map[string]interface{}{"verdict": "favorable"}
	n.CompleteTask("t1", result)

	v, ok := n.Store().GetContext("task_result_t1")
	if !ok {
		t.Fatal("completed task result should be shared in the context store")
	}
	shared, ok := v.(map[string]interface{})
	if !ok || shared["verdict"] != "favorable" {
		t.Errorf("shared result = %v, want the task output", v)
	}
}

func TestNetwork_ResultTTLConfigurable(t *testing.T) {
	n := newTestNetwork()
	n.SetResultTTL(10 * time.Millisecond)
	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)
	n.UpdateTaskStatus("t1", models.TaskStatusInProgress, "agent-1")

	n.CompleteTask("t1", map[string]interface{}{"verdict": "favorable"})

	if _, ok := n.Store().GetContext("task_result_t1"); !ok {
		t.Fatal("result should be shared right after completion")
	}
	waitFor(t, func() bool {
		_, ok := n.Store().GetContext("task_result_t1")
		return !ok
	}, "result should expire per the configured TTL")
}

func TestNetwork_FailTaskRecordsError(t *testing.T) {
	n := newTestNetwork()
	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)

	n.FailTask("t1", "analyzer exploded")

	task, _ := n.GetTask("t1")
	if task.Status != models.TaskStatusFailed {
		t.Errorf("status = %q, want failed", task.Status)
	}
	if task.Metadata["error"] != "analyzer exploded" {
		t.Errorf("error metadata = %v", task.Metadata["error"])
	}
	if task.CompletedAt == nil {
		t.Error("completed-at should be recorded on failure")
	}
}

func TestNetwork_AssignPicksHighestPriorityFirst(t *testing.T) {
	n := newTestNetwork()

	agent := NewAgent("worker", "TestAgent", models.NewCapabilitySet(models.CapabilityMarketAnalysis), 5)
	agent.RegisterHandler(models.TaskTypeMarketAnalysis, func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		return map[string]interface{}{"done": task.ID}, nil
	})
	if err := agent.JoinNetwork(n); err != nil {
		t.Fatal(err)
	}

	submitTask(t, n, "p2", models.TaskTypeMarketAnalysis, 2)
	submitTask(t, n, "p3", models.TaskTypeMarketAnalysis, 3)

	if err := n.AssignPendingTasks(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		task, _ := n.GetTask("p3")
		return task.Status == models.TaskStatusCompleted
	}, "p3 should be assigned and completed first")

	task, _ := n.GetTask("p2")
	if task.Status == models.TaskStatusCompleted {
		// A single tick assigns exactly one task; p2 must still be queued.
		t.Error("lower-priority task must not be assigned on the same tick")
	}
}

func TestNetwork_AssignRespectsCapability(t *testing.T) {
	n := newTestNetwork()

	executed := make(chan string, 1)
	agent := NewAgent("pricing-only", "TestAgent", models.NewCapabilitySet(models.CapabilityPriceOptimization), 5)
	agent.SetDefaultHandler(func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		executed <- task.ID
		return nil, nil
	})
	if err := agent.JoinNetwork(n); err != nil {
		t.Fatal(err)
	}

	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 3)

	// Repeated ticks must never hand a market-analysis task to an agent
	// without the capability.
	for i := 0; i < 5; i++ {
		if err := n.AssignPendingTasks(); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case id := <-executed:
		t.Fatalf("incapable agent executed task %s", id)
	case <-time.After(50 * time.Millisecond):
	}

	task, _ := n.GetTask("t1")
	if task.Status != models.TaskStatusPending {
		t.Errorf("unassignable task status = %q, want pending", task.Status)
	}
}

func TestNetwork_AssignPrefersLeastLoaded(t *testing.T) {
	n := newTestNetwork()

	block := make(chan struct{})
	started := make(chan string, 4)
	handler := func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		started <- task.AssigneeID
		<-block
		return nil, nil
	}

	busy := NewAgent("busy", "TestAgent", models.NewCapabilitySet(models.CapabilityMarketAnalysis), 5)
	busy.RegisterHandler(models.TaskTypeMarketAnalysis, handler)
	idle := NewAgent("idle", "TestAgent", models.NewCapabilitySet(models.CapabilityMarketAnalysis), 5)
	idle.RegisterHandler(models.TaskTypeMarketAnalysis, handler)

	if err := busy.JoinNetwork(n); err != nil {
		t.Fatal(err)
	}
	if err := idle.JoinNetwork(n); err != nil {
		t.Fatal(err)
	}
	defer close(block)

	// Load up the first agent directly so it has one in-flight task.
	submitTask(t, n, "warm", models.TaskTypeMarketAnalysis, 1)
	n.UpdateTaskStatus("warm", models.TaskStatusAssigned, "")
	busyMsg := models.NewMessage(models.MessageTypeTaskAssign, networkSenderID, "busy", map[string]interface{}{"task_id": "warm"})
	n.Store().SendMessage(busyMsg)
	<-started

	submitTask(t, n, "next", models.TaskTypeMarketAnalysis, 1)
	if err := n.AssignPendingTasks(); err != nil {
		t.Fatal(err)
	}

	select {
	case assignee := <-started:
		if assignee != "idle" {
			t.Errorf("task assigned to %q, want the least-loaded agent", assignee)
		}
	case <-time.After(time.Second):
		t.Fatal("assignment never reached an agent")
	}
}

func TestNetwork_StartStopIdempotent(t *testing.T) {
	n := NewNetwork(mcp.NewContextStore(), 10*time.Millisecond)

	n.Start()
	n.Start()
	if !n.Running() {
		t.Fatal("network should be running")
	}

	n.Stop()
	n.Stop()
	if n.Running() {
		t.Fatal("network should be stopped")
	}
}

func TestNetwork_Stats(t *testing.T) {
	n := newTestNetwork()

	agent := NewAgent("a1", "TestAgent", models.NewCapabilitySet(models.CapabilityMarketAnalysis), 1)
	if err := agent.JoinNetwork(n); err != nil {
		t.Fatal(err)
	}

	submitTask(t, n, "t1", models.TaskTypeMarketAnalysis, 1)
	submitTask(t, n, "t2", models.TaskTypeMarketAnalysis, 1)
	n.CompleteTask("t2", nil)

	stats := n.Stats()
	if stats.TotalAgents != 1 || stats.ActiveAgents != 1 {
		t.Errorf("agent counts = %d/%d, want 1/1", stats.TotalAgents, stats.ActiveAgents)
	}
	if stats.TotalTasks != 2 {
		t.Errorf("total tasks = %d, want 2", stats.TotalTasks)
	}
	if stats.PendingTasks != 1 {
		t.Errorf("pending tasks = %d, want 1", stats.PendingTasks)
	}
	if stats.TaskStats["completed"] != 1 {
		t.Errorf("completed count = %d, want 1", stats.TaskStats["completed"])
	}
	if stats.Status != "stopped" {
		t.Errorf("status = %q, want stopped", stats.Status)
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
