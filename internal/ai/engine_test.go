package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aimami-art/agentmesh/pkg/models"
)

func testProduct(price, cost float64) *models.Product {
	return &models.Product{
		ID:        "prod-1",
		Name:      "Widget Pro",
		Category:  "tools",
		Price:     price,
		Cost:      cost,
		CreatedAt: time.Now(),
	}
}

// fixedCompleter returns a canned narrative or an error.
type fixedCompleter struct {
	text string
	err  error
}

func (f *fixedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f.text, f.err
}

func TestPriceBand(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{1200, "premium"},
		{500, "premium"},
		{499.99, "mid-range"},
		{100, "mid-range"},
		{99.99, "budget"},
		{0, "budget"},
	}
	for _, tt := range tests {
		if got := priceBand(tt.price); got != tt.want {
			t.Errorf("priceBand(%v) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestEngine_AnalyzeMarket(t *testing.T) {
	e := NewEngine(nil)

	result := e.AnalyzeMarket(context.Background(), testProduct(800, 200))
	if result["market_position"] != "premium" {
		t.Errorf("market_position = %v, want premium", result["market_position"])
	}
	if result["growth_outlook"] != "expanding" {
		t.Errorf("growth_outlook = %v, want expanding for a high-margin product", result["growth_outlook"])
	}
	if result["product_id"] != "prod-1" {
		t.Errorf("product_id = %v", result["product_id"])
	}
	if _, has := result["narrative"]; has {
		t.Error("no completer configured, result must not carry a narrative")
	}
}

func TestEngine_SegmentCustomers(t *testing.T) {
	e := NewEngine(nil)

	result := e.SegmentCustomers(context.Background(), testProduct(50, 20))
	segments, ok := result["segments"].([]map[string]interface{})
	if !ok || len(segments) == 0 {
		t.Fatalf("segments = %v, want a non-empty list", result["segments"])
	}
	if result["primary_segment"] != "price-driven buyers" {
		t.Errorf("primary_segment = %v for a budget product", result["primary_segment"])
	}
}

func TestEngine_OptimizePricing(t *testing.T) {
	e := NewEngine(nil)
	product := testProduct(200, 150)

	market := map[string]interface{}{"market_position": "mid-range"}
	result := e.OptimizePricing(context.Background(), product, market)

	// Cost 150 at a 40% target margin recommends 250, a raise from 200.
	if result["recommended_price"] != 250.0 {
		t.Errorf("recommended_price = %v, want 250", result["recommended_price"])
	}
	if result["pricing_strategy"] != "raise" {
		t.Errorf("pricing_strategy = %v, want raise", result["pricing_strategy"])
	}

	// Without market data the conservative margin applies, and a nil
	// map must not panic.
	result = e.OptimizePricing(context.Background(), product, nil)
	if result["target_margin"] != 0.35 {
		t.Errorf("fallback target_margin = %v, want 0.35", result["target_margin"])
	}
}

func TestEngine_GenerateMessaging(t *testing.T) {
	e := NewEngine(nil)

	segmentation := map[string]interface{}{"primary_segment": "enterprise buyers"}
	result := e.GenerateMessaging(context.Background(), testProduct(900, 300), segmentation)
	if result["target_audience"] != "enterprise buyers" {
		t.Errorf("target_audience = %v, want the primary segment", result["target_audience"])
	}

	result = e.GenerateMessaging(context.Background(), testProduct(900, 300), nil)
	if result["target_audience"] != "general buyers" {
		t.Errorf("fallback target_audience = %v, want general buyers", result["target_audience"])
	}
}

func TestEngine_BuildStrategy(t *testing.T) {
	e := NewEngine(nil)

	analyses := map[string]map[string]interface{}{
		"pricing":   {"pricing_strategy": "raise"},
		"messaging": {"target_audience": "value optimizers"},
	}
	strategy := e.BuildStrategy(context.Background(), testProduct(200, 100), analyses)

	actions, ok := strategy["recommended_actions"].([]string)
	if !ok || len(actions) != 2 {
		t.Fatalf("recommended_actions = %v, want price and campaign actions", strategy["recommended_actions"])
	}
	if strategy["pricing"] == nil {
		t.Error("strategy should embed the pricing section")
	}

	// Empty analyses still yield a default action.
	strategy = e.BuildStrategy(context.Background(), testProduct(200, 100), nil)
	actions, _ = strategy["recommended_actions"].([]string)
	if len(actions) != 1 || actions[0] != "maintain current positioning" {
		t.Errorf("default actions = %v", actions)
	}
}

func TestEngine_ComprehensiveAnalysis(t *testing.T) {
	e := NewEngine(nil)

	analyses, err := e.ComprehensiveAnalysis(context.Background(), testProduct(300, 100))
	if err != nil {
		t.Fatal(err)
	}

	for _, section := range []string{"market_analysis", "segmentation", "pricing", "messaging"} {
		if analyses[section] == nil {
			t.Errorf("missing section %q", section)
		}
	}

	// Pricing must have seen the market section's position.
	if analyses["pricing"]["target_margin"] != 0.40 {
		t.Errorf("pricing target_margin = %v, want the mid-range margin", analyses["pricing"]["target_margin"])
	}
}

func TestEngine_ComprehensiveAnalysisCancelled(t *testing.T) {
	e := NewEngine(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.ComprehensiveAnalysis(ctx, testProduct(300, 100)); err == nil {
		t.Error("cancelled context should surface an error")
	}
}

func TestEngine_NarrativeEnrichment(t *testing.T) {
	e := NewEngine(&fixedCompleter{text: "a compelling story"})

	result := e.AnalyzeMarket(context.Background(), testProduct(300, 100))
	if result["narrative"] != "a compelling story" {
		t.Errorf("narrative = %v, want the completer output", result["narrative"])
	}
}

func TestEngine_CompleterFailureDegrades(t *testing.T) {
	e := NewEngine(&fixedCompleter{err: errors.New("api down")})

	result := e.AnalyzeMarket(context.Background(), testProduct(300, 100))
	if _, has := result["narrative"]; has {
		t.Error("failed completion must not attach a narrative")
	}
	if result["market_position"] == nil {
		t.Error("deterministic analysis must survive a completer failure")
	}
}
