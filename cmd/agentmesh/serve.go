package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aimami-art/agentmesh/internal/config"
)

var serveStatusInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent mesh until interrupted",
	Long: `Start the full agent mesh and keep it running.

The mesh brings up the shared context store, the task network, and
the worker agents, then waits for Ctrl-C or SIGTERM. While running it
logs a periodic status line with agent load and task backlog.

If a config file is in use, edits to it are picked up live.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveStatusInterval, "status-interval", 30*time.Second, "How often to log a status summary")
}

func runServe(cmd *cobra.Command, args []string) error {
	o, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.Start(); err != nil {
		return fmt.Errorf("start mesh: %w", err)
	}

	// Reload is advisory: a changed file only affects the next start,
	// but surfacing the event tells the operator a restart is due.
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.GetUserConfigPath()
	}
	if _, err := os.Stat(watchPath); err == nil {
		watcher, err := config.Watch(watchPath, func(cfg *config.Config) {
			log.Printf("[serve] config file changed, restart to apply")
		})
		if err != nil {
			log.Printf("[serve] config watch unavailable: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(serveStatusInterval)
	defer ticker.Stop()

	fmt.Println("Agent mesh running. Press Ctrl-C to stop.")
	for {
		select {
		case sig := <-sigs:
			log.Printf("[serve] received %s, shutting down", sig)
			o.Stop()
			return nil
		case <-ticker.C:
			status := o.GetSystemStatus()
			log.Printf("[serve] health=%v network=%+v", status["health"], status["network"])
		}
	}
}
