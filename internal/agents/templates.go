// Package agents provides the concrete agents on the network: market,
// performance, and strategy workers plus the coordinator that runs
// multi-task workflows over them.
package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// Workflow type names with built-in plans.
const (
	WorkflowComprehensiveStrategy   = "comprehensive_strategy"
	WorkflowMarketResearch          = "market_research"
	WorkflowPerformanceOptimization = "performance_optimization"
)

// WorkflowTemplate is a named, reusable workflow plan.
type WorkflowTemplate struct {
	// Type is the workflow type name used to request the plan.
	Type string `yaml:"type"`
	// Description is free-form plan documentation.
	Description string `yaml:"description,omitempty"`
	// Tasks is the plan's task specs.
	Tasks []models.WorkflowTaskSpec `yaml:"tasks"`
}

// BuiltinTemplates returns the built-in workflow plans.
func BuiltinTemplates() map[string]WorkflowTemplate {
	return map[string]WorkflowTemplate{
		WorkflowComprehensiveStrategy: {
			Type:        WorkflowComprehensiveStrategy,
			Description: "full market, segmentation, pricing, and strategy pipeline",
			Tasks: []models.WorkflowTaskSpec{
				{
					Name:      "market_analysis",
					Type:      models.TaskTypeMarketAnalysis,
					AgentType: "MarketAgent",
					Priority:  3,
				},
				{
					Name:      "customer_segmentation",
					Type:      models.TaskTypeCustomerSegmentation,
					AgentType: "StrategyAgent",
					Priority:  3,
				},
				{
					Name:         "price_optimization",
					Type:         models.TaskTypePriceOptimization,
					AgentType:    "StrategyAgent",
					Priority:     2,
					Dependencies: []string{"market_analysis"},
				},
				{
					Name:         "strategy_generation",
					Type:         models.TaskTypeStrategyGeneration,
					AgentType:    "StrategyAgent",
					Priority:     1,
					Dependencies: []string{"market_analysis", "customer_segmentation", "price_optimization"},
				},
			},
		},
		WorkflowMarketResearch: {
			Type:        WorkflowMarketResearch,
			Description: "market landscape plus competitor deep dive",
			Tasks: []models.WorkflowTaskSpec{
				{
					Name:      "market_analysis",
					Type:      models.TaskTypeMarketAnalysis,
					AgentType: "MarketAgent",
					Priority:  3,
				},
				{
					Name:         "competitor_research",
					Type:         models.TaskTypeCompetitorResearch,
					AgentType:    "MarketAgent",
					Priority:     2,
					Dependencies: []string{"market_analysis"},
				},
			},
		},
		WorkflowPerformanceOptimization: {
			Type:        WorkflowPerformanceOptimization,
			Description: "sales performance review feeding a pricing update",
			Tasks: []models.WorkflowTaskSpec{
				{
					Name:      "performance_analysis",
					Type:      models.TaskTypePerformanceAnalysis,
					AgentType: "PerformanceAgent",
					Priority:  3,
				},
				{
					Name:         "price_optimization",
					Type:         models.TaskTypePriceOptimization,
					AgentType:    "StrategyAgent",
					Priority:     2,
					Dependencies: []string{"performance_analysis"},
				},
			},
		},
	}
}

// LoadTemplates reads workflow plans from a YAML file and returns them
// keyed by type. File plans override built-ins of the same type.
func LoadTemplates(path string) (map[string]WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var doc struct {
		Workflows []WorkflowTemplate `yaml:"workflows"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}

	templates := BuiltinTemplates()
	for _, tmpl := range doc.Workflows {
		if tmpl.Type == "" {
			return nil, fmt.Errorf("template in %s has no type", path)
		}
		if len(tmpl.Tasks) == 0 {
			return nil, fmt.Errorf("template %q has no tasks", tmpl.Type)
		}
		for _, task := range tmpl.Tasks {
			if !task.Type.Valid() {
				return nil, fmt.Errorf("template %q: unknown task type %q", tmpl.Type, task.Type)
			}
		}
		templates[tmpl.Type] = tmpl
	}
	return templates, nil
}
