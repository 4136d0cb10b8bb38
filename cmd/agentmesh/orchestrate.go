package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/pkg/models"
)

var (
	orchestrateTimeout time.Duration
	orchestrateDirect  bool
	orchestrateJSON    bool
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate <product-id>",
	Short: "Generate a sales strategy for a product",
	Long: `Run the comprehensive strategy workflow for a stored product.

Starts an embedded mesh, dispatches the workflow through the
coordinator, waits for the result, and prints the generated strategy.
The strategy is also persisted and shows up under 'agentmesh status'.

With --direct the coordinator is bypassed: a single strategy
generation task runs the full analysis pipeline inside one agent.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrchestrate,
}

func init() {
	orchestrateCmd.Flags().DurationVar(&orchestrateTimeout, "timeout", 5*time.Minute, "Give up after this long")
	orchestrateCmd.Flags().BoolVar(&orchestrateDirect, "direct", false, "Skip the workflow, run one strategy generation task")
	orchestrateCmd.Flags().BoolVar(&orchestrateJSON, "json", false, "Print the raw result as JSON")
}

func runOrchestrate(cmd *cobra.Command, args []string) error {
	productID := args[0]

	o, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	product, err := o.DB().GetProduct(productID)
	if err != nil {
		return fmt.Errorf("product %s: %w (add it with 'agentmesh product add')", productID, err)
	}

	if err := o.Start(); err != nil {
		return fmt.Errorf("start mesh: %w", err)
	}
	defer o.Stop()

	fmt.Printf("Generating strategy for %s (%s)...\n", color.CyanString(product.Name), productID)

	var taskID string
	if orchestrateDirect {
		taskID, err = o.CreateStrategyWithAgent(productID, nil)
	} else {
		taskID, err = o.OrchestrateComprehensiveStrategy(productID)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), orchestrateTimeout)
	defer cancel()
	result, err := o.WaitForTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("workflow: %w", err)
	}

	if orchestrateJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	strategy := result
	if !orchestrateDirect {
		results, _ := result["results"].(map[string]interface{})
		strategy, _ = results["strategy_generation"].(map[string]interface{})
		if strategy == nil {
			return fmt.Errorf("workflow finished without a strategy: %v", result["failed_tasks"])
		}
	}

	printStrategy(product, strategy)
	return nil
}

func printStrategy(product *models.Product, strategy map[string]interface{}) {
	fmt.Printf("\n%s %s\n", color.GreenString("✓"), color.New(color.Bold).Sprintf("Strategy for %s", product.Name))

	if market, ok := strategy["market_analysis"].(map[string]interface{}); ok {
		fmt.Printf("\n%s\n", color.CyanString("Market"))
		printSection(market)
	}
	if segmentation, ok := strategy["segmentation"].(map[string]interface{}); ok {
		fmt.Printf("\n%s\n", color.CyanString("Customers"))
		printSection(segmentation)
	}
	if pricing, ok := strategy["pricing"].(map[string]interface{}); ok {
		fmt.Printf("\n%s\n", color.CyanString("Pricing"))
		printSection(pricing)
	}
	if messaging, ok := strategy["messaging"].(map[string]interface{}); ok {
		fmt.Printf("\n%s\n", color.CyanString("Messaging"))
		printSection(messaging)
	}

	if actions, ok := strategy["recommended_actions"].([]string); ok && len(actions) > 0 {
		fmt.Printf("\n%s\n", color.CyanString("Recommended actions"))
		for _, action := range actions {
			fmt.Printf("  %s %s\n", color.YellowString("→"), action)
		}
	}
	if actions, ok := strategy["recommended_actions"].([]interface{}); ok && len(actions) > 0 {
		fmt.Printf("\n%s\n", color.CyanString("Recommended actions"))
		for _, action := range actions {
			fmt.Printf("  %s %v\n", color.YellowString("→"), action)
		}
	}
	fmt.Println()
}

// printSection prints the scalar fields of an analysis section.
func printSection(section map[string]interface{}) {
	keys := make([]string, 0, len(section))
	for key := range section {
		switch section[key].(type) {
		case string, float64, int, bool:
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-24s %v\n", key+":", section[key])
	}
}
