package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/state"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mesh and catalog state",
	Long: `Display the state of the agentmesh installation.

Shows:
  - Configuration in effect
  - Stored products and generated strategies
  - With --watch, a live view of a running mesh`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Start the mesh and watch it live")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusWatch {
		return runStatusWatch()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("  Scheduler tick: %s\n", cfg.Scheduler.Tick)
	fmt.Printf("  Result TTL: %s\n", cfg.MCP.ResultTTL)
	fmt.Printf("  Database: %s\n", dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("\nNo database yet. Run 'agentmesh init' to create one.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	products, err := db.ListProducts()
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("\nNo products stored. Add one with 'agentmesh product add'.")
		return nil
	}

	fmt.Printf("\nProducts (%d):\n", len(products))
	for _, p := range products {
		strategies, err := db.ListStrategies(p.ID)
		if err != nil {
			return fmt.Errorf("list strategies for %s: %w", p.ID, err)
		}
		fmt.Printf("  %s: %s ($%.2f, margin %.0f%%) - %d strategies\n",
			p.ID, p.Name, p.Price, p.Margin()*100, len(strategies))
		for i, s := range strategies {
			if i >= 3 {
				fmt.Printf("    ... and %d more\n", len(strategies)-3)
				break
			}
			fmt.Printf("    %s by %s at %s\n", s.ID, s.GeneratedBy, s.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runStatusWatch() error {
	o, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.Start(); err != nil {
		return fmt.Errorf("start mesh: %w", err)
	}
	return runStatusTUI(o)
}
