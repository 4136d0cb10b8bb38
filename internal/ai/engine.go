package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// Price bands used to place a product in the market.
const (
	premiumPriceFloor  = 500.0
	midRangePriceFloor = 100.0
)

const narrativeSystem = "You are a sales strategy analyst. Answer with a short, concrete paragraph."

// Engine runs the analysis behind strategy tasks. Every analyzer
// produces a deterministic structured result; when a Completer is
// configured the result is enriched with a generated narrative, and a
// completion failure degrades to the deterministic output.
type Engine struct {
	completer Completer
	debugLog  func(format string, args ...interface{})
}

// NewEngine creates an analysis engine. completer may be nil, which
// disables narrative enrichment.
func NewEngine(completer Completer) *Engine {
	return &Engine{
		completer: completer,
		debugLog:  func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (e *Engine) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		e.debugLog = fn
	}
}

// AnalyzeMarket produces a market analysis for the product: its price
// band, growth outlook, and competitive landscape.
func (e *Engine) AnalyzeMarket(ctx context.Context, product *models.Product) map[string]interface{} {
	band := priceBand(product.Price)

	outlook := "steady"
	if product.Margin() > 0.5 {
		outlook = "expanding"
	} else if product.Margin() < 0.15 {
		outlook = "contracting"
	}

	result := map[string]interface{}{
		"product_id":      product.ID,
		"market_position": band,
		"growth_outlook":  outlook,
		"competitive_landscape": map[string]interface{}{
			"intensity":       competitiveIntensity(band),
			"differentiators": []string{"quality", "positioning", "service"},
		},
		"opportunities": marketOpportunities(band),
		"analyzed_at":   time.Now().UTC().Format(time.RFC3339),
	}

	e.enrich(ctx, result, fmt.Sprintf(
		"Summarize the market situation for %q (category %s, priced %.2f, %s band, %s outlook).",
		product.Name, product.Category, product.Price, band, outlook))
	return result
}

// SegmentCustomers identifies target customer segments for the product.
func (e *Engine) SegmentCustomers(ctx context.Context, product *models.Product) map[string]interface{} {
	band := priceBand(product.Price)

	var segments []map[string]interface{}
	switch band {
	case "premium":
		segments = []map[string]interface{}{
			{"name": "enterprise buyers", "share": 0.45, "sensitivity": "low"},
			{"name": "quality seekers", "share": 0.35, "sensitivity": "low"},
			{"name": "aspirational upgraders", "share": 0.20, "sensitivity": "medium"},
		}
	case "mid-range":
		segments = []map[string]interface{}{
			{"name": "value optimizers", "share": 0.50, "sensitivity": "medium"},
			{"name": "small businesses", "share": 0.30, "sensitivity": "medium"},
			{"name": "trade-up buyers", "share": 0.20, "sensitivity": "high"},
		}
	default:
		segments = []map[string]interface{}{
			{"name": "price-driven buyers", "share": 0.60, "sensitivity": "high"},
			{"name": "first-time adopters", "share": 0.40, "sensitivity": "high"},
		}
	}

	primary, _ := segments[0]["name"].(string)
	result := map[string]interface{}{
		"product_id":      product.ID,
		"segments":        segments,
		"primary_segment": primary,
		"analyzed_at":     time.Now().UTC().Format(time.RFC3339),
	}

	e.enrich(ctx, result, fmt.Sprintf(
		"Describe the primary customer segment for %q in the %s category, a %s-band product.",
		product.Name, product.Category, band))
	return result
}

// OptimizePricing recommends a price for the product given the market
// analysis. A nil market analysis falls back to product data alone.
func (e *Engine) OptimizePricing(ctx context.Context, product *models.Product, market map[string]interface{}) map[string]interface{} {
	// Target margin by market position; unknown positions price
	// conservatively.
	targetMargin := 0.35
	position := "unknown"
	if market != nil {
		if p, ok := market["market_position"].(string); ok {
			position = p
		}
	}
	switch position {
	case "premium":
		targetMargin = 0.55
	case "mid-range":
		targetMargin = 0.40
	case "budget":
		targetMargin = 0.20
	}

	recommended := product.Price
	if product.Cost > 0 {
		recommended = product.Cost / (1 - targetMargin)
	}

	strategy := "hold"
	if recommended > product.Price*1.05 {
		strategy = "raise"
	} else if recommended < product.Price*0.95 {
		strategy = "discount"
	}

	result := map[string]interface{}{
		"product_id":        product.ID,
		"current_price":     product.Price,
		"recommended_price": round2(recommended),
		"target_margin":     targetMargin,
		"pricing_strategy":  strategy,
		"analyzed_at":       time.Now().UTC().Format(time.RFC3339),
	}

	e.enrich(ctx, result, fmt.Sprintf(
		"Justify a %s pricing move for %q from %.2f to %.2f at a %.0f%% target margin.",
		strategy, product.Name, product.Price, recommended, targetMargin*100))
	return result
}

// GenerateMessaging produces value propositions and channel guidance,
// keyed to the segmentation when available.
func (e *Engine) GenerateMessaging(ctx context.Context, product *models.Product, segmentation map[string]interface{}) map[string]interface{} {
	audience := "general buyers"
	if segmentation != nil {
		if p, ok := segmentation["primary_segment"].(string); ok && p != "" {
			audience = p
		}
	}

	band := priceBand(product.Price)
	valueProps := []string{
		fmt.Sprintf("%s built for %s", product.Name, audience),
	}
	channels := []string{"email", "content marketing"}
	switch band {
	case "premium":
		valueProps = append(valueProps, "white-glove onboarding", "proven outcomes over price")
		channels = append(channels, "direct sales")
	case "mid-range":
		valueProps = append(valueProps, "best value in class")
		channels = append(channels, "webinars")
	default:
		valueProps = append(valueProps, "lowest total cost")
		channels = append(channels, "paid social")
	}

	result := map[string]interface{}{
		"product_id":         product.ID,
		"target_audience":    audience,
		"value_propositions": valueProps,
		"channels":           channels,
		"analyzed_at":        time.Now().UTC().Format(time.RFC3339),
	}

	e.enrich(ctx, result, fmt.Sprintf(
		"Write a one-paragraph pitch of %q aimed at %s.", product.Name, audience))
	return result
}

// BuildStrategy composes the final strategy document from the
// constituent analyses. Missing analyses leave their sections absent.
func (e *Engine) BuildStrategy(ctx context.Context, product *models.Product, analyses map[string]map[string]interface{}) map[string]interface{} {
	strategy := map[string]interface{}{
		"product_id":   product.ID,
		"product_name": product.Name,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}
	for key, section := range analyses {
		if section != nil {
			strategy[key] = section
		}
	}

	var actions []string
	if pricing, ok := analyses["pricing"]; ok && pricing != nil {
		if move, ok := pricing["pricing_strategy"].(string); ok && move != "hold" {
			actions = append(actions, fmt.Sprintf("adjust price (%s)", move))
		}
	}
	if messaging, ok := analyses["messaging"]; ok && messaging != nil {
		if audience, ok := messaging["target_audience"].(string); ok {
			actions = append(actions, fmt.Sprintf("focus campaigns on %s", audience))
		}
	}
	if len(actions) == 0 {
		actions = append(actions, "maintain current positioning")
	}
	strategy["recommended_actions"] = actions

	e.enrich(ctx, strategy, fmt.Sprintf(
		"Write an executive summary of a sales strategy for %q with actions: %v.",
		product.Name, actions))
	return strategy
}

// ComprehensiveAnalysis runs the full analysis pipeline: market and
// segmentation in parallel, then pricing and messaging in parallel on
// top of them. The returned map carries all four sections.
func (e *Engine) ComprehensiveAnalysis(ctx context.Context, product *models.Product) (map[string]map[string]interface{}, error) {
	var market, segmentation map[string]interface{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		market = e.AnalyzeMarket(gctx, product)
		return nil
	})
	g.Go(func() error {
		segmentation = e.SegmentCustomers(gctx, product)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pricing, messaging map[string]interface{}
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		pricing = e.OptimizePricing(gctx, product, market)
		return nil
	})
	g.Go(func() error {
		messaging = e.GenerateMessaging(gctx, product, segmentation)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]map[string]interface{}{
		"market_analysis": market,
		"segmentation":    segmentation,
		"pricing":         pricing,
		"messaging":       messaging,
	}, nil
}

// enrich adds a generated narrative to the result when a completer is
// available. Completion failures are logged and leave the result as-is.
func (e *Engine) enrich(ctx context.Context, result map[string]interface{}, prompt string) {
	if e.completer == nil {
		return
	}
	text, err := e.completer.Complete(ctx, narrativeSystem, prompt)
	if err != nil {
		log.Printf("[ai] narrative enrichment skipped: %v", err)
		return
	}
	result["narrative"] = text
	e.debugLog("[ai.enrich] narrative generated (%d chars)", len(text))
}

func priceBand(price float64) string {
	switch {
	case price >= premiumPriceFloor:
		return "premium"
	case price >= midRangePriceFloor:
		return "mid-range"
	default:
		return "budget"
	}
}

func competitiveIntensity(band string) string {
	if band == "budget" {
		return "high"
	}
	return "moderate"
}

func marketOpportunities(band string) []string {
	switch band {
	case "premium":
		return []string{"enterprise expansion", "service attach"}
	case "mid-range":
		return []string{"upsell paths", "adjacent categories"}
	default:
		return []string{"volume growth", "bundle offers"}
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
