package mcp

import (
	"testing"
	"time"

	"github.com/aimami-art/agentmesh/pkg/models"
)

func TestService_StartStopIdempotent(t *testing.T) {
	svc := NewService(time.Hour)

	svc.Start()
	svc.Start()
	if !svc.Running() {
		t.Fatal("service should be running after Start")
	}

	svc.Stop()
	svc.Stop()
	if svc.Running() {
		t.Fatal("service should be stopped after Stop")
	}

	// Restart after stop must work.
	svc.Start()
	if !svc.Running() {
		t.Fatal("service should restart after Stop")
	}
	svc.Stop()
}

func TestService_RegisterAgent(t *testing.T) {
	svc := NewService(0)

	info := svc.RegisterAgent("agent-1", "StrategyAgent", models.NewCapabilitySet(models.CapabilityStrategyGeneration))
	if info.Status != models.AgentStatusActive {
		t.Errorf("registered agent status = %q, want active", info.Status)
	}

	got, ok := svc.Store().GetAgent("agent-1")
	if !ok {
		t.Fatal("agent should be stored")
	}
	if got.Type != "StrategyAgent" {
		t.Errorf("agent type = %q, want StrategyAgent", got.Type)
	}
}

func TestService_Stats(t *testing.T) {
	svc := NewService(time.Hour)

	svc.RegisterAgent("agent-1", "TestAgent", models.NewCapabilitySet(models.CapabilityCoordination))
	svc.Store().ShareContext("agent-1", "key", "value", time.Minute)

	stats := svc.Stats()
	if stats.Status != "stopped" {
		t.Errorf("stopped service stats status = %q, want stopped", stats.Status)
	}
	if stats.TotalAgents != 1 {
		t.Errorf("total agents = %d, want 1", stats.TotalAgents)
	}
	if stats.SharedDataCount != 1 {
		t.Errorf("shared data count = %d, want 1", stats.SharedDataCount)
	}
	if stats.ActiveAgents != 1 {
		t.Errorf("active agents = %d, want 1", stats.ActiveAgents)
	}

	svc.Start()
	defer svc.Stop()
	if got := svc.Stats().Status; got != "running" {
		t.Errorf("running service stats status = %q, want running", got)
	}
}

func TestService_CleanupLoopSweeps(t *testing.T) {
	svc := NewService(20 * time.Millisecond)
	svc.Store().ShareContext("agent-1", "stale", "x", time.Millisecond)

	svc.Start()
	defer svc.Stop()

	deadline := time.After(time.Second)
	for {
		_, contexts, _ := svc.Store().Counts()
		if contexts == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("cleanup loop did not sweep expired context in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
