package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/ai"
	"github.com/aimami-art/agentmesh/internal/mcp"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// newTestMesh wires a store, a fast-ticking network, and a coordinator.
func newTestMesh(t *testing.T) (*a2a.Network, *CoordinatorAgent) {
	t.Helper()
	network := a2a.NewNetwork(mcp.NewContextStore(), 10*time.Millisecond)
	network.Start()
	t.Cleanup(network.Stop)

	coordinator := NewCoordinatorAgent("coordinator", 10)
	coordinator.SetPollInterval(10 * time.Millisecond)
	if err := coordinator.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}
	return network, coordinator
}

func productInput() map[string]interface{} {
	return map[string]interface{}{
		"product_id":   "prod-1",
		"product_name": "Widget Pro",
		"category":     "tools",
		"price":        200.0,
		"cost":         80.0,
	}
}

func TestCoordinator_ComprehensiveWorkflowOrdering(t *testing.T) {
	network, coordinator := newTestMesh(t)

	engine := ai.NewEngine(nil)
	strategy := NewStrategyAgent("strategist", engine, nil, 2)
	market := NewMarketAgent("analyst", engine, nil, 3)
	if err := strategy.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}
	if err := market.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := coordinator.RunWorkflow(ctx, WorkflowComprehensiveStrategy, productInput())
	if err != nil {
		t.Fatal(err)
	}

	if result["status"] != "completed" {
		t.Fatalf("workflow status = %v, want completed (failed: %v)", result["status"], result["failed_tasks"])
	}
	if result["progress"] != 100 {
		t.Errorf("progress = %v, want 100", result["progress"])
	}

	results, ok := result["results"].(map[string]interface{})
	if !ok {
		t.Fatalf("results = %T", result["results"])
	}
	for _, name := range []string{"market_analysis", "customer_segmentation", "price_optimization", "strategy_generation"} {
		if results[name] == nil {
			t.Errorf("missing result for %s", name)
		}
	}

	// Dependency gating shows up in the submission timestamps: pricing
	// waits for market analysis, strategy waits for everything.
	wfID, _ := result["workflow_id"].(string)
	wf, ok := coordinator.GetWorkflow(wfID)
	if !ok {
		t.Fatal("workflow not retained")
	}
	submitted := make(map[string]time.Time)
	for _, entry := range wf.Tasks {
		submitted[entry.SpecName] = entry.SubmittedAt
		if entry.Status != string(models.TaskStatusCompleted) {
			t.Errorf("tracking for %s = %q, want completed", entry.SpecName, entry.Status)
		}
	}
	if len(submitted) != 4 {
		t.Fatalf("tracked %d tasks, want 4", len(submitted))
	}
	if submitted["price_optimization"].Before(submitted["market_analysis"]) {
		t.Error("price_optimization submitted before its market_analysis dependency")
	}
	if submitted["strategy_generation"].Before(submitted["price_optimization"]) {
		t.Error("strategy_generation submitted before price_optimization completed")
	}
	if wf.Status != models.WorkflowStatusCompleted {
		t.Errorf("retained workflow status = %q", wf.Status)
	}

	// The final strategy must have seen the upstream analyses, not
	// recomputed them: its pricing section carries the dependency's
	// recommendation.
	strategyDoc, _ := results["strategy_generation"].(map[string]interface{})
	if strategyDoc["pricing"] == nil {
		t.Error("strategy output missing the pricing section")
	}
}

func TestCoordinator_FailedDependencyAbandonsDependents(t *testing.T) {
	network, coordinator := newTestMesh(t)

	// A market worker that always fails, and a strategy worker for the
	// independent segmentation branch.
	failing := a2a.NewAgent("broken-analyst", "MarketAgent",
		models.NewCapabilitySet(models.CapabilityMarketAnalysis), 3)
	failing.RegisterHandler(models.TaskTypeMarketAnalysis, func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		return nil, errors.New("market feed unavailable")
	})
	if err := failing.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}

	segmentation := a2a.NewAgent("segmenter", "StrategyAgent",
		models.NewCapabilitySet(models.CapabilityCustomerSegmentation), 2)
	segmentation.RegisterHandler(models.TaskTypeCustomerSegmentation, func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		return map[string]interface{}{"segments": "ok"}, nil
	})
	if err := segmentation.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := coordinator.RunWorkflow(ctx, WorkflowComprehensiveStrategy, productInput())
	if err != nil {
		t.Fatal(err)
	}

	if result["status"] != "failed" {
		t.Fatalf("workflow status = %v, want failed", result["status"])
	}

	failed, _ := result["failed_tasks"].([]string)
	want := map[string]bool{"market_analysis": true, "price_optimization": true, "strategy_generation": true}
	if len(failed) != len(want) {
		t.Fatalf("failed_tasks = %v, want the failed root and its dependents", failed)
	}
	for _, name := range failed {
		if !want[name] {
			t.Errorf("unexpected failed task %s", name)
		}
	}

	// The independent branch still completed.
	results, _ := result["results"].(map[string]interface{})
	if results["customer_segmentation"] == nil {
		t.Error("customer_segmentation should have completed despite the failure")
	}
}

func TestCoordinator_UnknownWorkflowType(t *testing.T) {
	_, coordinator := newTestMesh(t)

	if _, err := coordinator.RunWorkflow(context.Background(), "mystery", nil); err == nil {
		t.Error("unknown workflow type should error")
	}
}

func TestCoordinator_CoordinationActions(t *testing.T) {
	network, coordinator := newTestMesh(t)

	engine := ai.NewEngine(nil)
	market := NewMarketAgent("analyst", engine, nil, 3)
	if err := market.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}

	resources := coordinator.AllocateResources()
	agents, _ := resources["agents"].(map[string]interface{})
	if agents["analyst"] == nil || agents["coordinator"] == nil {
		t.Errorf("allocation missing agents: %v", agents)
	}

	monitor := coordinator.MonitorSystem()
	if monitor["health"] != "healthy" {
		t.Errorf("health = %v, want healthy with active agents", monitor["health"])
	}

	stats := coordinator.CoordinatorStats()
	if stats["total_workflows"] != 0 {
		t.Errorf("total_workflows = %v, want 0", stats["total_workflows"])
	}
}

func TestCoordinator_AgentPerformance(t *testing.T) {
	network, coordinator := newTestMesh(t)

	worker := a2a.NewAgent("worker", "TestAgent",
		models.NewCapabilitySet(models.CapabilityMarketAnalysis), 3)
	worker.RegisterHandler(models.TaskTypeMarketAnalysis, func(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
		if task.ID == "t-fail" {
			return nil, errors.New("feed unavailable")
		}
		return map[string]interface{}{}, nil
	})
	if err := worker.JoinNetwork(network); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"t-fail", "t-ok"} {
		task := models.NewTask(id, models.TaskTypeMarketAnalysis, "tester")
		if _, err := network.SubmitTask(task); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		a, _ := network.GetTask("t-fail")
		b, _ := network.GetTask("t-ok")
		if a.Status.IsTerminal() && b.Status.IsTerminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	perf := coordinator.AgentPerformance()
	agents, _ := perf["agents"].(map[string]interface{})
	worker1, _ := agents["worker"].(map[string]interface{})
	if worker1 == nil {
		t.Fatalf("no performance entry for worker: %v", agents)
	}
	if worker1["completed"] != 1 || worker1["failed"] != 1 {
		t.Errorf("tally = %v, want 1 completed and 1 failed", worker1)
	}
	if worker1["success_rate"] != 0.5 {
		t.Errorf("success_rate = %v, want 0.5", worker1["success_rate"])
	}
}
