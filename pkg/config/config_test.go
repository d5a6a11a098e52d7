package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, EngineAuto, cfg.SolverEngine)
	assert.Equal(t, "cbc", cfg.CBCPath)
	assert.Equal(t, 30*time.Second, cfg.SolverTimeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.InDelta(t, 50.0, cfg.DefaultBudget, 1e-9)
	assert.Equal(t, 5, cfg.DefaultMaxChanges)
	assert.Equal(t, 5, cfg.DefaultTopN)
	assert.Empty(t, cfg.Formations)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("SOLVER_ENGINE", "cbc")
	t.Setenv("SOLVER_TIMEOUT", "2m")
	t.Setenv("DEFAULT_BUDGET", "83.5")
	t.Setenv("FORMATIONS", "4-4-2, 3-5-2,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, EngineCBC, cfg.SolverEngine)
	assert.Equal(t, 2*time.Minute, cfg.SolverTimeout)
	assert.InDelta(t, 83.5, cfg.DefaultBudget, 1e-9)
	assert.Equal(t, []string{"4-4-2", "3-5-2"}, cfg.Formations)
}

func TestLoadConfig_RejectsUnknownEngine(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOLVER_ENGINE", "glpk")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glpk")
}

func TestValidate(t *testing.T) {
	base := Config{SolverEngine: EngineSimplex, DefaultTopN: 1}
	require.NoError(t, base.Validate())

	negBudget := base
	negBudget.DefaultBudget = -1
	assert.Error(t, negBudget.Validate())

	negChanges := base
	negChanges.DefaultMaxChanges = -2
	assert.Error(t, negChanges.Validate())

	zeroTop := base
	zeroTop.DefaultTopN = 0
	assert.Error(t, zeroTop.Validate())
}
