package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cosmo "github.com/cosmoos/cosmo-go/pkg/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := cosmo.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, cosmo.ProviderSQLite, cfg.Store.Provider)
	assert.Equal(t, "none", cfg.Health.Tier)
	assert.Equal(t, 75.0, cfg.Cognitive.RecoveryFactor)
	assert.Equal(t, 4, cfg.Insights.ScheduleHour)
	assert.Equal(t, 30, cfg.Insights.WindowDays)
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, cfg *cosmo.Config)
	}{
		{
			name: "sqlite with health access",
			envVars: map[string]string{
				"DATABASE_PROVIDER":      "SQLite",
				"SQLITE_PATH":            "./test.db",
				"HEALTH_AUTHORIZED":      "true",
				"HEALTH_TIER":            "activity",
				"INSIGHTS_SCHEDULE_HOUR": "6",
				"SNOWFLAKE_NODE":         "7",
			},
			validate: func(t *testing.T, cfg *cosmo.Config) {
				assert.Equal(t, cosmo.ProviderSQLite, cfg.Store.Provider)
				assert.Equal(t, "./test.db", cfg.Store.SQLite.Path)
				assert.True(t, cfg.Health.Authorized)
				assert.Equal(t, "activity", cfg.Health.Tier)
				assert.Equal(t, 6, cfg.Insights.ScheduleHour)
				assert.Equal(t, int64(7), cfg.SnowflakeNode)
			},
		},
		{
			name: "postgres with tuned heuristics",
			envVars: map[string]string{
				"DATABASE_PROVIDER":         "postgres",
				"POSTGRES_HOST":             "db.internal",
				"POSTGRES_PORT":             "6543",
				"POSTGRES_DATABASE":         "cosmo_prod",
				"HEALTH_AUTHORIZED":         "false",
				"HEALTH_TIER":               "full",
				"COGNITIVE_RECOVERY_FACTOR": "60",
				"COGNITIVE_DECAY_RATE":      "0.25",
			},
			validate: func(t *testing.T, cfg *cosmo.Config) {
				assert.Equal(t, "db.internal", cfg.Store.Postgres.Host)
				assert.Equal(t, 6543, cfg.Store.Postgres.Port)
				assert.Equal(t, "cosmo_prod", cfg.Store.Postgres.Database)
				assert.False(t, cfg.Health.Authorized)
				assert.Equal(t, "none", cfg.Health.Tier, "tier is dropped without authorization")
				assert.Equal(t, 60.0, cfg.Cognitive.RecoveryFactor)
				assert.Equal(t, 0.25, cfg.Cognitive.DecayRate)
			},
		},
		{
			name:    "invalid port",
			envVars: map[string]string{"MYSQL_PORT": "not-a-port"},
			wantErr: true,
		},
		{
			name:    "invalid decay rate",
			envVars: map[string]string{"COGNITIVE_DECAY_RATE": "fast"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := cosmo.LoadConfigFromEnv()
			if tt.wantErr {
				assert.ErrorIs(t, err, cosmo.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cosmo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"store": {"provider": "mysql", "mysql": {"host": "127.0.0.1", "port": 3307, "database": "cosmo"}},
		"insights": {"schedule_hour": 2}
	}`), 0o600))

	cfg, err := cosmo.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, cosmo.ProviderMySQL, cfg.Store.Provider)
	assert.Equal(t, 3307, cfg.Store.MySQL.Port)
	assert.Equal(t, 2, cfg.Insights.ScheduleHour)
	assert.Equal(t, 30, cfg.Insights.WindowDays, "absent fields keep defaults")
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())

	_, err = cosmo.LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *cosmo.Config)
	}{
		{"unknown provider", func(cfg *cosmo.Config) { cfg.Store.Provider = "mongo" }},
		{"empty sqlite path", func(cfg *cosmo.Config) { cfg.Store.SQLite.Path = "" }},
		{"postgres without host", func(cfg *cosmo.Config) { cfg.Store.Provider = cosmo.ProviderPostgres }},
		{"unknown tier", func(cfg *cosmo.Config) { cfg.Health.Tier = "partial" }},
		{"hour out of range", func(cfg *cosmo.Config) { cfg.Insights.ScheduleHour = 24 }},
		{"node out of range", func(cfg *cosmo.Config) { cfg.SnowflakeNode = 1024 }},
		{"negative decay", func(cfg *cosmo.Config) { cfg.Cognitive.DecayRate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cosmo.DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), cosmo.ErrInvalidConfig)
		})
	}
}
