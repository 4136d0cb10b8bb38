package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify agentmesh configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/agentmesh/config.yaml
Project-specific overrides can be placed in .agentmesh.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("scheduler.tick: %s\n", cfg.Scheduler.Tick)
	fmt.Printf("mcp.cleanup_interval: %s\n", cfg.MCP.CleanupInterval)
	fmt.Printf("mcp.result_ttl: %s\n", cfg.MCP.ResultTTL)
	fmt.Printf("agents.strategy_max_tasks: %d\n", cfg.Agents.StrategyMaxTasks)
	fmt.Printf("agents.market_max_tasks: %d\n", cfg.Agents.MarketMaxTasks)
	fmt.Printf("agents.performance_max_tasks: %d\n", cfg.Agents.PerformanceMaxTasks)
	fmt.Printf("agents.coordinator_max_tasks: %d\n", cfg.Agents.CoordinatorMaxTasks)
	fmt.Printf("database.path: %s\n", cfg.Database.Path)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "scheduler.tick":
		return cfg.Scheduler.Tick.String(), nil
	case "mcp.cleanup_interval":
		return cfg.MCP.CleanupInterval.String(), nil
	case "mcp.result_ttl":
		return cfg.MCP.ResultTTL.String(), nil
	case "agents.strategy_max_tasks":
		return strconv.Itoa(cfg.Agents.StrategyMaxTasks), nil
	case "agents.market_max_tasks":
		return strconv.Itoa(cfg.Agents.MarketMaxTasks), nil
	case "agents.performance_max_tasks":
		return strconv.Itoa(cfg.Agents.PerformanceMaxTasks), nil
	case "agents.coordinator_max_tasks":
		return strconv.Itoa(cfg.Agents.CoordinatorMaxTasks), nil
	case "database.path":
		return cfg.Database.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		cfg.Anthropic.UseBedrock = b
	case "scheduler.tick":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		cfg.Scheduler.Tick = d
	case "mcp.cleanup_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		cfg.MCP.CleanupInterval = d
	case "mcp.result_ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		cfg.MCP.ResultTTL = d
	case "agents.strategy_max_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		cfg.Agents.StrategyMaxTasks = n
	case "agents.market_max_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		cfg.Agents.MarketMaxTasks = n
	case "agents.performance_max_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		cfg.Agents.PerformanceMaxTasks = n
	case "agents.coordinator_max_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		cfg.Agents.CoordinatorMaxTasks = n
	case "database.path":
		cfg.Database.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
