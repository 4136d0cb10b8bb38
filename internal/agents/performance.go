package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// PerformanceAgent computes sales performance metrics from reported
// figures in the task input.
type PerformanceAgent struct {
	*a2a.Agent
}

// NewPerformanceAgent creates a performance agent.
func NewPerformanceAgent(id string, maxTasks int) *PerformanceAgent {
	p := &PerformanceAgent{
		Agent: a2a.NewAgent(id, "PerformanceAgent", models.NewCapabilitySet(
			models.CapabilityPerformanceAnalysis,
			models.CapabilityMetricsCalculation,
		), maxTasks),
	}

	p.RegisterHandler(models.TaskTypePerformanceAnalysis, p.handlePerformanceAnalysis)
	return p
}

// handlePerformanceAnalysis turns reported revenue/unit/target figures
// into attainment metrics and a health grade.
func (p *PerformanceAgent) handlePerformanceAnalysis(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	revenue := asFloat(task.InputData["revenue"])
	target := asFloat(task.InputData["target_revenue"])
	units := asFloat(task.InputData["units_sold"])
	if revenue == 0 && units == 0 {
		return nil, fmt.Errorf("no sales figures in task input")
	}

	metrics := map[string]interface{}{
		"revenue":    revenue,
		"units_sold": units,
	}
	if units > 0 {
		metrics["average_sale_price"] = revenue / units
	}

	attainment := 0.0
	if target > 0 {
		attainment = revenue / target
		metrics["target_attainment"] = attainment
	}

	grade := "on_track"
	switch {
	case target > 0 && attainment < 0.7:
		grade = "underperforming"
	case target > 0 && attainment >= 1.1:
		grade = "exceeding"
	}

	var recommendations []string
	if grade == "underperforming" {
		recommendations = append(recommendations, "review pricing", "refocus top segments")
	}
	if grade == "exceeding" {
		recommendations = append(recommendations, "raise targets", "expand inventory")
	}

	return map[string]interface{}{
		"product_id":      task.InputData["product_id"],
		"metrics":         metrics,
		"grade":           grade,
		"recommendations": recommendations,
		"analyzed_at":     time.Now().UTC().Format(time.RFC3339),
	}, nil
}
