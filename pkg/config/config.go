package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EngineSimplex = "simplex"
	EngineCBC     = "cbc"
	// EngineAuto uses CBC when CBC_PATH resolves, simplex otherwise.
	EngineAuto = "auto"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Storage
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	CacheTTL    time.Duration `mapstructure:"CACHE_TTL"`

	// Solver
	SolverEngine  string        `mapstructure:"SOLVER_ENGINE"`
	CBCPath       string        `mapstructure:"CBC_PATH"`
	SolverTimeout time.Duration `mapstructure:"SOLVER_TIMEOUT"`

	// Optimization defaults
	DefaultBudget     float64  `mapstructure:"DEFAULT_BUDGET"`
	DefaultMaxChanges int      `mapstructure:"DEFAULT_MAX_CHANGES"`
	DefaultTopN       int      `mapstructure:"DEFAULT_TOP_N"`
	MaxPlayers        int      `mapstructure:"MAX_PLAYERS"`
	Formations        []string `mapstructure:"FORMATIONS"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	// Set defaults
	v.SetDefault("PORT", "8082")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("SOLVER_ENGINE", EngineAuto)
	v.SetDefault("CBC_PATH", "cbc")
	v.SetDefault("SOLVER_TIMEOUT", "30s")
	v.SetDefault("DEFAULT_BUDGET", 50.0)
	v.SetDefault("DEFAULT_MAX_CHANGES", 5)
	v.SetDefault("DEFAULT_TOP_N", 5)
	v.SetDefault("MAX_PLAYERS", 2000)
	v.SetDefault("FORMATIONS", "")

	// Read from environment
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse formations from comma-separated string
	config.Formations = nil
	if formationStr := v.GetString("FORMATIONS"); formationStr != "" {
		for _, f := range strings.Split(formationStr, ",") {
			if f = strings.TrimSpace(f); f != "" {
				config.Formations = append(config.Formations, f)
			}
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the optimizer cannot run with
func (c *Config) Validate() error {
	switch c.SolverEngine {
	case EngineAuto, EngineSimplex, EngineCBC:
	default:
		return fmt.Errorf("unsupported SOLVER_ENGINE %q (want %s, %s or %s)", c.SolverEngine, EngineAuto, EngineSimplex, EngineCBC)
	}
	if c.DefaultBudget < 0 {
		return fmt.Errorf("DEFAULT_BUDGET must not be negative, got %v", c.DefaultBudget)
	}
	if c.DefaultMaxChanges < 0 {
		return fmt.Errorf("DEFAULT_MAX_CHANGES must not be negative, got %d", c.DefaultMaxChanges)
	}
	if c.DefaultTopN <= 0 {
		return fmt.Errorf("DEFAULT_TOP_N must be positive, got %d", c.DefaultTopN)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
