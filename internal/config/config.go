// Package config handles configuration loading for agentmesh.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for agentmesh.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// AnthropicConfig holds AI backend settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default model name.
	Model string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// SchedulerConfig holds task scheduler settings.
type SchedulerConfig struct {
	// Tick is the interval between assignment attempts.
	Tick time.Duration `mapstructure:"tick"`
}

// MCPConfig holds context store settings.
type MCPConfig struct {
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// ResultTTL is how long task results stay in shared context.
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// AgentsConfig holds per-agent concurrency bounds.
type AgentsConfig struct {
	StrategyMaxTasks    int `mapstructure:"strategy_max_tasks"`
	MarketMaxTasks      int `mapstructure:"market_max_tasks"`
	PerformanceMaxTasks int `mapstructure:"performance_max_tasks"`
	CoordinatorMaxTasks int `mapstructure:"coordinator_max_tasks"`
}

// DatabaseConfig holds state store settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path; empty uses the XDG default.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.agentmesh.yaml in current directory or a parent)
// 3. User config (~/.config/agentmesh/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("scheduler.tick", cfg.Scheduler.Tick.String())
	v.Set("mcp.cleanup_interval", cfg.MCP.CleanupInterval.String())
	v.Set("mcp.result_ttl", cfg.MCP.ResultTTL.String())
	v.Set("agents.strategy_max_tasks", cfg.Agents.StrategyMaxTasks)
	v.Set("agents.market_max_tasks", cfg.Agents.MarketMaxTasks)
	v.Set("agents.performance_max_tasks", cfg.Agents.PerformanceMaxTasks)
	v.Set("agents.coordinator_max_tasks", cfg.Agents.CoordinatorMaxTasks)
	v.Set("database.path", cfg.Database.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("scheduler.tick", "5s")

	v.SetDefault("mcp.cleanup_interval", "5m")
	v.SetDefault("mcp.result_ttl", "120m")

	v.SetDefault("agents.strategy_max_tasks", 2)
	v.SetDefault("agents.market_max_tasks", 3)
	v.SetDefault("agents.performance_max_tasks", 3)
	v.SetDefault("agents.coordinator_max_tasks", 10)

	v.SetDefault("database.path", "")
}

// getUserConfigDir returns the XDG config directory for agentmesh.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "agentmesh")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentmesh")
	}
	return filepath.Join(home, ".config", "agentmesh")
}

// findProjectConfig searches for .agentmesh.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".agentmesh.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Tick: 5 * time.Second,
		},
		MCP: MCPConfig{
			CleanupInterval: 5 * time.Minute,
			ResultTTL:       120 * time.Minute,
		},
		Agents: AgentsConfig{
			StrategyMaxTasks:    2,
			MarketMaxTasks:      3,
			PerformanceMaxTasks: 3,
			CoordinatorMaxTasks: 10,
		},
	}
}
