package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/config"
	"github.com/aimami-art/agentmesh/internal/orchestrator"
)

var (
	configPath   string
	debugLogPath string
)

var rootCmd = &cobra.Command{
	Use:   "agentmesh",
	Short: "Multi-agent sales strategy mesh",
	Long: `Agentmesh runs a mesh of cooperating agents that analyze products
and generate sales strategies.

A shared context store lets agents publish and subscribe to each
other's findings, a priority task network routes work to whichever
capable agent has the most headroom, and a coordinator drives
multi-step workflows with dependency ordering.

Core capabilities:
- Comprehensive strategy workflows (market, segmentation, pricing, strategy)
- Capability-based task routing with priority scheduling
- Shared analysis context with TTL expiry
- Persistent products and generated strategies`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: user config + project overrides)")
	rootCmd.PersistentFlags().StringVar(&debugLogPath, "debug-log", "", "Write a debug log to this path")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// buildOrchestrator constructs an orchestrator from the resolved config
// and the --debug-log flag.
func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var opts []orchestrator.Option
	if debugLogPath != "" {
		logger, err := orchestrator.NewDebugLogger(debugLogPath)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
		opts = append(opts, orchestrator.WithDebugLogger(logger))
	}

	return orchestrator.New(cfg, opts...)
}
