package agents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/ai"
	"github.com/aimami-art/agentmesh/internal/state"
	"github.com/aimami-art/agentmesh/pkg/models"
)

// How long a generated strategy context stays shared.
const strategyContextTTL = 60 * time.Minute

// StrategyAgent generates sales strategies: segmentation, pricing, and
// the final strategy document. Products are resolved from the state
// store when a product_id is given, or from inline task input.
type StrategyAgent struct {
	*a2a.Agent
	engine *ai.Engine
	db     *state.DB
}

// NewStrategyAgent creates a strategy agent. db may be nil, which
// disables product lookup and strategy persistence.
func NewStrategyAgent(id string, engine *ai.Engine, db *state.DB, maxTasks int) *StrategyAgent {
	s := &StrategyAgent{
		Agent: a2a.NewAgent(id, "StrategyAgent", models.NewCapabilitySet(
			models.CapabilityStrategyGeneration,
			models.CapabilityMarketAnalysis,
			models.CapabilityCustomerSegmentation,
			models.CapabilityPriceOptimization,
			models.CapabilityMessagingStrategy,
		), maxTasks),
		engine: engine,
		db:     db,
	}

	s.RegisterHandler(models.TaskTypeStrategyGeneration, s.handleStrategyGeneration)
	s.RegisterHandler(models.TaskTypeMarketAnalysis, s.handleMarketAnalysis)
	s.RegisterHandler(models.TaskTypeCustomerSegmentation, s.handleCustomerSegmentation)
	s.RegisterHandler(models.TaskTypePriceOptimization, s.handlePriceOptimization)
	return s
}

func (s *StrategyAgent) handleMarketAnalysis(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := s.resolveProduct(task.InputData)
	if err != nil {
		return nil, err
	}
	return s.engine.AnalyzeMarket(ctx, product), nil
}

func (s *StrategyAgent) handleCustomerSegmentation(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := s.resolveProduct(task.InputData)
	if err != nil {
		return nil, err
	}
	return s.engine.SegmentCustomers(ctx, product), nil
}

func (s *StrategyAgent) handlePriceOptimization(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := s.resolveProduct(task.InputData)
	if err != nil {
		return nil, err
	}
	market := dependencyResult(task.InputData, "market_analysis")
	return s.engine.OptimizePricing(ctx, product, market), nil
}

// handleStrategyGeneration builds the final strategy. Analyses from
// upstream workflow tasks are used when present; otherwise the full
// pipeline runs here.
func (s *StrategyAgent) handleStrategyGeneration(ctx context.Context, task *models.Task) (map[string]interface{}, error) {
	product, err := s.resolveProduct(task.InputData)
	if err != nil {
		return nil, err
	}

	analyses := map[string]map[string]interface{}{
		"market_analysis": dependencyResult(task.InputData, "market_analysis"),
		"segmentation":    dependencyResult(task.InputData, "customer_segmentation"),
		"pricing":         dependencyResult(task.InputData, "price_optimization"),
	}
	if analyses["market_analysis"] == nil && analyses["segmentation"] == nil {
		analyses, err = s.engine.ComprehensiveAnalysis(ctx, product)
		if err != nil {
			return nil, fmt.Errorf("comprehensive analysis: %w", err)
		}
	}
	if analyses["messaging"] == nil {
		analyses["messaging"] = s.engine.GenerateMessaging(ctx, product, analyses["segmentation"])
	}

	strategy := s.engine.BuildStrategy(ctx, product, analyses)

	if network := s.Network(); network != nil {
		network.Store().ShareContext(s.ID(), "strategy_context_"+product.ID, strategy, strategyContextTTL)
	}
	s.persist(product, task, strategy)

	return strategy, nil
}

// persist writes the strategy row. Persistence is a side channel, a
// failure is logged and does not fail the task.
func (s *StrategyAgent) persist(product *models.Product, task *models.Task, strategy map[string]interface{}) {
	if s.db == nil {
		return
	}
	workflowID, _ := task.InputData["workflow_id"].(string)
	row := &models.Strategy{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		WorkflowID:  workflowID,
		Content:     strategy,
		GeneratedBy: s.ID(),
		CreatedAt:   time.Now(),
	}
	if err := s.db.SaveStrategy(row); err != nil {
		log.Printf("[agents] %s: strategy not persisted: %v", s.ID(), err)
	}
}

// resolveProduct loads the product named by product_id from the state
// store, falling back to inline product fields in the input.
func (s *StrategyAgent) resolveProduct(input map[string]interface{}) (*models.Product, error) {
	return resolveProduct(s.db, input)
}

func resolveProduct(db *state.DB, input map[string]interface{}) (*models.Product, error) {
	productID, _ := input["product_id"].(string)
	if productID != "" && db != nil {
		product, err := db.GetProduct(productID)
		if err == nil {
			return product, nil
		}
		log.Printf("[agents] product %s not in store, using inline data: %v", productID, err)
	}

	product := &models.Product{ID: productID}
	if name, ok := input["product_name"].(string); ok {
		product.Name = name
	}
	if category, ok := input["category"].(string); ok {
		product.Category = category
	}
	product.Price = asFloat(input["price"])
	product.Cost = asFloat(input["cost"])

	if product.ID == "" && product.Name == "" {
		return nil, fmt.Errorf("task input names no product")
	}
	if product.Name == "" {
		product.Name = product.ID
	}
	return product, nil
}

// dependencyResult extracts one upstream task output injected by the
// coordinator under dependency_results.
func dependencyResult(input map[string]interface{}, name string) map[string]interface{} {
	deps, ok := input["dependency_results"].(map[string]interface{})
	if !ok {
		return nil
	}
	result, _ := deps[name].(map[string]interface{})
	return result
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
