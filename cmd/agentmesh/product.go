package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/state"
	"github.com/aimami-art/agentmesh/pkg/models"
)

var (
	productID          string
	productName        string
	productDescription string
	productCategory    string
	productPrice       float64
	productCost        float64
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage the product catalog",
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a product",
	Long: `Store a product in the catalog.

With --id, an existing product is updated in place. Without it a new
ID is generated. The product can then be targeted by
'agentmesh orchestrate <product-id>'.`,
	RunE: runProductAdd,
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored products",
	RunE:  runProductList,
}

func init() {
	productAddCmd.Flags().StringVar(&productID, "id", "", "Product ID (generated when empty)")
	productAddCmd.Flags().StringVar(&productName, "name", "", "Product name")
	productAddCmd.Flags().StringVar(&productDescription, "description", "", "Product description")
	productAddCmd.Flags().StringVar(&productCategory, "category", "", "Product category")
	productAddCmd.Flags().Float64Var(&productPrice, "price", 0, "Sale price")
	productAddCmd.Flags().Float64Var(&productCost, "cost", 0, "Unit cost")
	productAddCmd.MarkFlagRequired("name")
	productAddCmd.MarkFlagRequired("price")

	productCmd.AddCommand(productAddCmd)
	productCmd.AddCommand(productListCmd)
}

func openStateDB() (*state.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	path := cfg.Database.Path
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id := productID
	if id == "" {
		id = uuid.New().String()
	}

	product := &models.Product{
		ID:          id,
		Name:        productName,
		Description: productDescription,
		Category:    productCategory,
		Price:       productPrice,
		Cost:        productCost,
		CreatedAt:   time.Now(),
	}
	if err := db.SaveProduct(product); err != nil {
		return fmt.Errorf("save product: %w", err)
	}

	fmt.Printf("Saved product %s\n", id)
	return nil
}

func runProductList(cmd *cobra.Command, args []string) error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	products, err := db.ListProducts()
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		fmt.Println("No products stored.")
		return nil
	}

	for _, p := range products {
		fmt.Printf("%s  %-24s %-12s $%.2f (cost $%.2f, margin %.0f%%)\n",
			p.ID, p.Name, p.Category, p.Price, p.Cost, p.Margin()*100)
	}
	return nil
}
