package models

import "time"

// Product is a catalog entry that strategy workflows analyze. Rows live
// in the local state store and are referenced by ID from task input data.
type Product struct {
	// ID is the unique product identifier.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Description is free-form product copy.
	Description string `json:"description"`
	// Category groups products for market comparison.
	Category string `json:"category"`
	// Price is the current list price.
	Price float64 `json:"price"`
	// Cost is the unit cost, used by pricing analysis.
	Cost float64 `json:"cost"`
	// CreatedAt is when the product was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Margin returns the unit margin fraction, zero when the price is unset.
func (p *Product) Margin() float64 {
	if p.Price <= 0 {
		return 0
	}
	return (p.Price - p.Cost) / p.Price
}

// Strategy is a generated sales strategy persisted for a product.
type Strategy struct {
	// ID is the unique strategy identifier.
	ID string `json:"id"`
	// ProductID references the analyzed product.
	ProductID string `json:"product_id"`
	// WorkflowID references the workflow that produced the strategy,
	// empty for directly generated strategies.
	WorkflowID string `json:"workflow_id,omitempty"`
	// Content is the structured strategy document.
	Content map[string]interface{} `json:"content"`
	// GeneratedBy names the agent that produced the strategy.
	GeneratedBy string `json:"generated_by"`
	// CreatedAt is when the strategy was generated.
	CreatedAt time.Time `json:"created_at"`
}
