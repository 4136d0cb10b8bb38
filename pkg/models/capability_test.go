package models

import "testing"

func TestCapabilityForTaskType(t *testing.T) {
	// Every task type must map to a capability; the scheduler depends on it.
	for _, taskType := range AllTaskTypes {
		c, ok := CapabilityForTaskType(taskType)
		if !ok {
			t.Errorf("CapabilityForTaskType(%q) missing mapping", taskType)
		}
		if string(c) != string(taskType) {
			t.Errorf("CapabilityForTaskType(%q) = %q, want matching name", taskType, c)
		}
	}

	if _, ok := CapabilityForTaskType(TaskType("unknown")); ok {
		t.Error("unknown task type should have no capability mapping")
	}
}

func TestParseCapability(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Capability
	}{
		{"lowercase passthrough", "market_analysis", CapabilityMarketAnalysis},
		{"uppercase normalized", "MARKET_ANALYSIS", CapabilityMarketAnalysis},
		{"mixed case normalized", "Strategy_Generation", CapabilityStrategyGeneration},
		{"whitespace trimmed", "  coordination  ", CapabilityCoordination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCapability(tt.input); got != tt.want {
				t.Errorf("ParseCapability(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCapabilitySet_CanHandle(t *testing.T) {
	set := NewCapabilitySet(CapabilityMarketAnalysis, CapabilityPriceOptimization)

	tests := []struct {
		taskType TaskType
		want     bool
	}{
		{TaskTypeMarketAnalysis, true},
		{TaskTypePriceOptimization, true},
		{TaskTypeStrategyGeneration, false},
		{TaskTypeCoordination, false},
		{TaskType("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.taskType), func(t *testing.T) {
			if got := set.CanHandle(tt.taskType); got != tt.want {
				t.Errorf("CanHandle(%q) = %v, want %v", tt.taskType, got, tt.want)
			}
		})
	}
}

func TestCapabilitySet_Has(t *testing.T) {
	set := NewCapabilitySet(CapabilityCoordination)

	if !set.Has(CapabilityCoordination) {
		t.Error("expected set to contain coordination")
	}
	if set.Has(CapabilityMarketAnalysis) {
		t.Error("expected set to not contain market_analysis")
	}
}
