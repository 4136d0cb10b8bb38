package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// SaveProduct inserts or replaces a product row.
func (db *DB) SaveProduct(p *models.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	_, err := db.Exec(`
		INSERT INTO products (id, name, description, category, price, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			price = excluded.price,
			cost = excluded.cost
	`, p.ID, p.Name, p.Description, p.Category, p.Price, p.Cost, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return nil
}

// GetProduct fetches one product by ID.
func (db *DB) GetProduct(id string) (*models.Product, error) {
	row := db.QueryRow(`
		SELECT id, name, description, category, price, cost, created_at
		FROM products WHERE id = ?
	`, id)

	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// ListProducts returns all products ordered by creation time.
func (db *DB) ListProducts() ([]*models.Product, error) {
	rows, err := db.Query(`
		SELECT id, name, description, category, price, cost, created_at
		FROM products ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(scan func(dest ...any) error) (*models.Product, error) {
	var p models.Product
	var createdAt string
	if err := scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Cost, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	p.CreatedAt = t
	return &p, nil
}
