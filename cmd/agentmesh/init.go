package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/config"
	"github.com/aimami-art/agentmesh/internal/state"
	"github.com/aimami-art/agentmesh/pkg/models"
)

var (
	initForce       bool
	initWithSamples bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize agentmesh configuration and storage",
	Long: `Set up everything needed to run agentmesh:
  - Writes a default config file to the user config directory
  - Creates and migrates the product database
  - Checks for AI credentials

Examples:
  agentmesh init                 # Set up config and database
  agentmesh init --with-samples  # Also seed example products
  agentmesh init --force         # Overwrite an existing config`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initWithSamples, "with-samples", false, "Seed example products")
}

func runInit(cmd *cobra.Command, args []string) error {
	userConfigPath := config.GetUserConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil && !initForce {
		printStatus("✓", fmt.Sprintf("Config exists at %s (use --force to overwrite)", userConfigPath), color.FgGreen)
	} else {
		if err := config.Save(config.Default()); err != nil {
			printStatus("✗", "Could not write config", color.FgRed)
			return err
		}
		printStatus("✓", fmt.Sprintf("Wrote default config to %s", userConfigPath), color.FgGreen)
	}

	db, err := openStateDB()
	if err != nil {
		printStatus("✗", "Could not set up database", color.FgRed)
		return err
	}
	defer db.Close()
	printStatus("✓", fmt.Sprintf("Database ready at %s", db.Path()), color.FgGreen)

	if initWithSamples {
		if err := seedSampleProducts(db); err != nil {
			return fmt.Errorf("seed samples: %w", err)
		}
		printStatus("✓", "Seeded sample products", color.FgGreen)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set, analyses will run without AI narratives", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	fmt.Printf("\n%s agentmesh is ready!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  agentmesh product add --name \"My Product\" --price 199 --cost 60")
	fmt.Println("  agentmesh orchestrate <product-id>")
	fmt.Println("  agentmesh status")
	return nil
}

func seedSampleProducts(db *state.DB) error {
	now := time.Now()
	samples := []*models.Product{
		{ID: "sample-crm", Name: "CloudCRM Suite", Category: "software", Price: 899, Cost: 120, CreatedAt: now},
		{ID: "sample-widget", Name: "Widget Pro", Category: "tools", Price: 149, Cost: 62, CreatedAt: now},
		{ID: "sample-cable", Name: "Basic Cable Pack", Category: "accessories", Price: 19, Cost: 11, CreatedAt: now},
	}
	for _, p := range samples {
		if err := db.SaveProduct(p); err != nil {
			return err
		}
	}
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
