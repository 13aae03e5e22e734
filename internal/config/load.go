package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var cueSchema string

// Load returns the default configuration overlaid with the file at path
// (skipped when path is empty) and the TRIDUP_* environment. The result is
// not validated; callers apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the settings in path onto cfg. Keys missing from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse YAML '%s': %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse TOML '%s': %w", path, err)
		}
	case ".cue":
		if err := decodeCUE(path, data, cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .toml or .cue)", filepath.Ext(path))
	}
	return nil
}

// decodeCUE unifies the file with the #Config schema, so bounds are
// enforced by CUE before the values reach Validate.
func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(cueSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return formatCUEError(err, path)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, path)
	}
	if err := unified.Decode(cfg); err != nil {
		return formatCUEError(err, path)
	}
	return nil
}

// formatCUEError reports the first CUE error, positioned in the config
// file when CUE knows where.
func formatCUEError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	for _, pos := range cueerrors.Positions(first) {
		if pos.IsValid() && pos.Filename() == path {
			return fmt.Errorf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), first.Error())
		}
	}
	return fmt.Errorf("%s: %s", path, first.Error())
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvIDs             = "TRIDUP_IDS"
	EnvSum             = "TRIDUP_SUM"
	EnvMaxPair         = "TRIDUP_MAX_PAIR"
	EnvMaxValue        = "TRIDUP_MAX_VALUE"
	EnvSheet           = "TRIDUP_SHEET"
	EnvHeaderRow       = "TRIDUP_HEADER_ROW"
	EnvWorkers         = "TRIDUP_WORKERS"
	EnvProgressEvery   = "TRIDUP_PROGRESS_EVERY"
	EnvCheckpointEvery = "TRIDUP_CHECKPOINT_EVERY"
)

// ApplyEnv overlays TRIDUP_* environment variables onto cfg.
//
// Environment variables:
//   - TRIDUP_IDS: comma-separated identifier columns
//   - TRIDUP_SUM: auxiliary sum column
//   - TRIDUP_MAX_PAIR, TRIDUP_MAX_VALUE: admission limits
//   - TRIDUP_SHEET, TRIDUP_HEADER_ROW: input layout
//   - TRIDUP_WORKERS, TRIDUP_PROGRESS_EVERY, TRIDUP_CHECKPOINT_EVERY: run tuning
//
// Returns an error if any environment variable has an invalid value.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvIDs); v != "" {
		cfg.IdentifierColumns = SplitColumns(v)
	}
	if v := os.Getenv(EnvSum); v != "" {
		cfg.AuxiliarySumField = v
	}
	if v, ok := os.LookupEnv(EnvSheet); ok {
		cfg.Sheet = v
	}
	ints := []struct {
		key  string
		dest *int
	}{
		{EnvMaxPair, &cfg.MaxPairDuplicates},
		{EnvMaxValue, &cfg.MaxValueFrequency},
		{EnvHeaderRow, &cfg.HeaderRow},
		{EnvWorkers, &cfg.Workers},
		{EnvProgressEvery, &cfg.ProgressEvery},
		{EnvCheckpointEvery, &cfg.CheckpointEvery},
	}
	for _, e := range ints {
		if err := parseEnvInt(e.key, e.dest); err != nil {
			return err
		}
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// SplitColumns splits a comma-separated column list, trimming spaces.
func SplitColumns(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
