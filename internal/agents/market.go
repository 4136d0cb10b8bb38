package agents

import (
	"context"
	"time"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/ai"
	"github.com/aimami-art/agentmesh/internal/state"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// MarketAgent handles market analysis and competitor research.
type MarketAgent struct {
	*a2a.Agent
	engine *ai.Engine
	db     *state.DB
}

// NewMarketAgent creates a market agent. db may be nil.
func NewMarketAgent(id string, engine *ai.Engine, db *state.DB, maxTasks int) *MarketAgent {
	m := &MarketAgent{
		Agent: a2a.NewAgent(id, "MarketAgent", models.NewCapabilitySet(
			models.CapabilityMarketAnalysis,
			models.CapabilityCompetitorResearch,
			models.CapabilityTrendAnalysis,
		), maxTasks),
		engine: engine,
		db:     db,
	}

	m.RegisterHandler(models.TaskTypeMarketAnalysis, m.handleMarketAnalysis)
	m.RegisterHandler(models.TaskTypeCompetitorResearch, m.handleCompetitorResearch)
	return m
}

func (m *MarketAgent) handleMarketAnalysis(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := resolveProduct(m.db, task.InputData)
	if err != nil {
		return nil, err
	}
	return m.engine.AnalyzeMarket(ctx, product), nil
}

// handleCompetitorResearch profiles the competitive field around the
// product, building on the upstream market analysis when available.
func (m *MarketAgent) handleCompetitorResearch(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := resolveProduct(m.db, task.InputData)
	if err != nil {
		return nil, err
	}

	market := dependencyResult(task.InputData, "market_analysis")
	if market == nil {
		market = m.engine.AnalyzeMarket(ctx, product)
	}

	position, _ := market["market_position"].(string)
	intensity := "moderate"
	if landscape, ok := market["competitive_landscape"].(map[string]interface{}); ok {
		if v, ok := landscape["intensity"].(string); ok {
			intensity = v
		}
	}

	competitors := []map[string]interface{}{
		{"profile": "category leader", "threat": "high", "price_delta": 0.15},
		{"profile": "discount entrant", "threat": threatFromIntensity(intensity), "price_delta": -0.25},
		{"profile": "niche specialist", "threat": "low", "price_delta": 0.05},
	}

	return map[string]interface{}{
		"product_id":      product.ID,
		"market_position": position,
		"intensity":       intensity,
		"competitors":     competitors,
		"analyzed_at":     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func threatFromIntensity(intensity string) string {
	if intensity == "high" {
		return "high"
	}
	return "medium"
}
