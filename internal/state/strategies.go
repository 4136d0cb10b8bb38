package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// SaveStrategy inserts a generated strategy row. The content map is
// stored as JSON.
func (db *DB) SaveStrategy(s *models.Strategy) error {
	if s.ID == "" || s.ProductID == "" {
		return fmt.Errorf("strategy ID and product ID are required")
	}

	content, err := json.Marshal(s.Content)
	if err != nil {
		return fmt.Errorf("marshal strategy content: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO strategies (id, product_id, workflow_id, content, generated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProductID, s.WorkflowID, string(content), s.GeneratedBy, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("save strategy %s: %w", s.ID, err)
	}
	return nil
}

// GetStrategy fetches one strategy by ID.
func (db *DB) GetStrategy(id string) (*models.Strategy, error) {
	row := db.QueryRow(`
		SELECT id, product_id, workflow_id, content, generated_by, created_at
		FROM strategies WHERE id = ?
	`, id)

	s, err := scanStrategy(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("strategy %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy %s: %w", id, err)
	}
	return s, nil
}

// ListStrategies returns the strategies generated for a product, most
// recent first.
func (db *DB) ListStrategies(productID string) ([]*models.Strategy, error) {
	rows, err := db.Query(`
		SELECT id, product_id, workflow_id, content, generated_by, created_at
		FROM strategies WHERE product_id = ? ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list strategies for %s: %w", productID, err)
	}
	defer rows.Close()

	var strategies []*models.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		strategies = append(strategies, s)
	}
	return strategies, rows.Err()
}

func scanStrategy(scan func(dest ...any) error) (*models.Strategy, error) {
	var s models.Strategy
	var content, createdAt string
	if err := scan(&s.ID, &s.ProductID, &s.WorkflowID, &content, &s.GeneratedBy, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &s.Content); err != nil {
		return nil, fmt.Errorf("unmarshal strategy content: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	s.CreatedAt = t
	return &s, nil
}
