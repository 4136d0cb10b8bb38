package models

import "strings"

// Capability is a typed tag describing work an agent can perform.
// Task types map to capabilities through CapabilityForTaskType, which
// replaces free-text capability matching with an explicit table.
type Capability string

const (
	// CapabilityMarketAnalysis handles market_analysis tasks.
	CapabilityMarketAnalysis Capability = "market_analysis"
	// CapabilityStrategyGeneration handles strategy_generation tasks.
	CapabilityStrategyGeneration Capability = "strategy_generation"
	// CapabilityPerformanceAnalysis handles performance_analysis tasks.
	CapabilityPerformanceAnalysis Capability = "performance_analysis"
	// CapabilityCompetitorResearch handles competitor_research tasks.
	CapabilityCompetitorResearch Capability = "competitor_research"
	// CapabilityPriceOptimization handles price_optimization tasks.
	CapabilityPriceOptimization Capability = "price_optimization"
	// CapabilityCustomerSegmentation handles customer_segmentation tasks.
	CapabilityCustomerSegmentation Capability = "customer_segmentation"
	// CapabilityCoordination handles coordination tasks.
	CapabilityCoordination Capability = "coordination"

	// CapabilityMessagingStrategy generates messaging content.
	// Declared by the strategy agent; no dedicated task type yet.
	CapabilityMessagingStrategy Capability = "messaging_strategy"
	// CapabilityTrendAnalysis analyzes market trends.
	CapabilityTrendAnalysis Capability = "trend_analysis"
	// CapabilityMetricsCalculation computes performance metrics.
	CapabilityMetricsCalculation Capability = "metrics_calculation"
	// CapabilityTaskOrchestration manages multi-task workflows.
	CapabilityTaskOrchestration Capability = "task_orchestration"
	// CapabilityResourceManagement allocates agent capacity.
	CapabilityResourceManagement Capability = "resource_management"
	// CapabilityWorkflowManagement tracks workflow progress.
	CapabilityWorkflowManagement Capability = "workflow_management"
	// CapabilitySystemMonitoring observes subsystem health.
	CapabilitySystemMonitoring Capability = "system_monitoring"
)

// capabilityByTaskType is the explicit mapping between task types and the
// capability required to execute them.
var capabilityByTaskType = map[TaskType]Capability{
	TaskTypeMarketAnalysis:       CapabilityMarketAnalysis,
	TaskTypeStrategyGeneration:   CapabilityStrategyGeneration,
	TaskTypePerformanceAnalysis:  CapabilityPerformanceAnalysis,
	TaskTypeCompetitorResearch:   CapabilityCompetitorResearch,
	TaskTypePriceOptimization:    CapabilityPriceOptimization,
	TaskTypeCustomerSegmentation: CapabilityCustomerSegmentation,
	TaskTypeCoordination:         CapabilityCoordination,
}

// CapabilityForTaskType returns the capability required to execute tasks of
// the given type. The second return is false for unknown task types.
func CapabilityForTaskType(t TaskType) (Capability, bool) {
	c, ok := capabilityByTaskType[t]
	return c, ok
}

// ParseCapability normalizes an external capability string.
// Matching is case-insensitive so hand-written config stays forgiving.
func ParseCapability(s string) Capability {
	return Capability(strings.ToLower(strings.TrimSpace(s)))
}

// CapabilitySet is the set of capabilities an agent declares.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has returns true if the capability is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// CanHandle returns true if the set contains the capability required for
// the given task type.
func (s CapabilitySet) CanHandle(t TaskType) bool {
	c, ok := CapabilityForTaskType(t)
	if !ok {
		return false
	}
	return s.Has(c)
}

// List returns the capabilities as a string slice.
// Order is not deterministic; callers needing stable output should sort.
func (s CapabilitySet) List() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	return out
}
