package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/engine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"ID1", "heroID2", "heroID3"}, cfg.IdentifierColumns)
	assert.Equal(t, "场次", cfg.AuxiliarySumField)
	assert.Equal(t, 3, cfg.MaxPairDuplicates)
	assert.Equal(t, 3, cfg.MaxValueFrequency)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1000, cfg.ProgressEvery)
	assert.Equal(t, 5000, cfg.CheckpointEvery)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"two identifier columns", func(c *Config) { c.IdentifierColumns = c.IdentifierColumns[:2] }, "identifier_columns"},
		{"duplicate identifier column", func(c *Config) { c.IdentifierColumns = []string{"a", "b", "a"} }, "identifier_columns"},
		{"blank identifier column", func(c *Config) { c.IdentifierColumns = []string{"a", " ", "c"} }, "identifier_columns"},
		{"empty sum field", func(c *Config) { c.AuxiliarySumField = "" }, "auxiliary_sum_field"},
		{"sum field is identifier", func(c *Config) { c.AuxiliarySumField = "ID1" }, "auxiliary_sum_field"},
		{"negative pair limit", func(c *Config) { c.MaxPairDuplicates = -1 }, "max_pair_duplicates"},
		{"zero value limit", func(c *Config) { c.MaxValueFrequency = 0 }, "max_value_frequency"},
		{"negative header row", func(c *Config) { c.HeaderRow = -2 }, "header_row"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"too many workers", func(c *Config) { c.Workers = 65 }, "workers"},
		{"negative progress", func(c *Config) { c.ProgressEvery = -1 }, "progress_every"},
		{"negative checkpoint", func(c *Config) { c.CheckpointEvery = -1 }, "checkpoint_every"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPairDuplicates = 0
	cfg.Sheet = "Sheet2"
	cfg.HeaderRow = 1

	assert.Equal(t, engine.Limits{MaxPairDuplicates: 0, MaxValueFrequency: 3}, cfg.Limits())
	assert.Equal(t, [3]string{"ID1", "heroID2", "heroID3"}, cfg.Columns().IDs)
	assert.Equal(t, "场次", cfg.Columns().Sum)
	assert.Equal(t, "Sheet2", cfg.ReadOptions().Sheet)
	assert.Equal(t, 1, cfg.ReadOptions().HeaderRow)
	assert.Contains(t, cfg.String(), "MaxPair: 0")
}

func TestConfig_Hash(t *testing.T) {
	base := DefaultConfig()
	h1, err := base.Hash()
	require.NoError(t, err)

	tuned := DefaultConfig()
	tuned.Workers = 16
	tuned.CheckpointEvery = 10
	h2, err := tuned.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "tuning does not change decisions")

	changed := DefaultConfig()
	changed.MaxValueFrequency = 4
	h3, err := changed.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestConfig_MarshalCanonical(t *testing.T) {
	data, err := DefaultConfig().MarshalCanonical()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"auxiliary_sum_field": "场次",
		"header_row": 0,
		"identifier_columns": ["ID1", "heroID2", "heroID3"],
		"max_pair_duplicates": 3,
		"max_value_frequency": 3,
		"sheet": ""
	}`, string(data))
}

func TestLoadFile_Formats(t *testing.T) {
	for _, name := range []string{"tridup.yaml", "tridup.toml", "tridup.cue"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, LoadFile(filepath.Join("testdata", name), &cfg))

			assert.Equal(t, []string{"hero_a", "hero_b", "hero_c"}, cfg.IdentifierColumns)
			assert.Equal(t, "games", cfg.AuxiliarySumField)
			assert.Equal(t, 2, cfg.MaxPairDuplicates)
			assert.Equal(t, 5, cfg.MaxValueFrequency)
			assert.Equal(t, 1, cfg.HeaderRow)

			// Keys missing from the file keep their defaults.
			assert.Equal(t, 4, cfg.Workers)
			assert.Equal(t, 5000, cfg.CheckpointEvery)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := DefaultConfig()

	err := LoadFile(filepath.Join("testdata", "bad_bounds.cue"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_bounds.cue")
	assert.Contains(t, err.Error(), "max_value_frequency")

	err = LoadFile(filepath.Join("testdata", "unknown.yaml"), &cfg)
	assert.Error(t, err, "unknown keys are rejected")

	err = LoadFile(filepath.Join("testdata", "missing.yaml"), &cfg)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "cfg.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	err = LoadFile(path, &cfg)
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvIDs, "a, b ,c")
	t.Setenv(EnvSum, "games")
	t.Setenv(EnvMaxPair, "0")
	t.Setenv(EnvMaxValue, "7")
	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvSheet, "")

	cfg := DefaultConfig()
	cfg.Sheet = "from-file"
	require.NoError(t, ApplyEnv(&cfg))

	assert.Equal(t, []string{"a", "b", "c"}, cfg.IdentifierColumns)
	assert.Equal(t, "games", cfg.AuxiliarySumField)
	assert.Equal(t, 0, cfg.MaxPairDuplicates)
	assert.Equal(t, 7, cfg.MaxValueFrequency)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "", cfg.Sheet, "an explicitly empty sheet selects the first sheet")
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv(EnvMaxValue, "lots")

	cfg := DefaultConfig()
	err := ApplyEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvMaxValue)
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv(EnvMaxValue, "9")

	cfg, err := Load(filepath.Join("testdata", "tridup.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxPairDuplicates, "from file")
	assert.Equal(t, 9, cfg.MaxValueFrequency, "env overrides file")

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxPairDuplicates, "default")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRIDUP_MAX_PAIR=1\n"), 0o644))

	// Register cleanup for the variable godotenv sets.
	t.Setenv(EnvMaxPair, "")
	require.NoError(t, os.Unsetenv(EnvMaxPair))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "1", os.Getenv(EnvMaxPair))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
