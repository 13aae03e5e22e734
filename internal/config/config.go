// Package config holds the run configuration of tridup.
//
// Values are layered, lowest precedence first: DefaultConfig, a config file
// (YAML, TOML or CUE, chosen by extension), TRIDUP_* environment variables
// (optionally seeded from a .env file) and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
	"github.com/roach88/tridup/internal/table"
)

// Config is the full configuration of a run.
type Config struct {
	// IdentifierColumns names the three identifier columns, in field order.
	IdentifierColumns []string `json:"identifier_columns" yaml:"identifier_columns" toml:"identifier_columns"`

	// AuxiliarySumField names the integer column summed per triple.
	AuxiliarySumField string `json:"auxiliary_sum_field" yaml:"auxiliary_sum_field" toml:"auxiliary_sum_field"`

	MaxPairDuplicates int `json:"max_pair_duplicates" yaml:"max_pair_duplicates" toml:"max_pair_duplicates"`
	MaxValueFrequency int `json:"max_value_frequency" yaml:"max_value_frequency" toml:"max_value_frequency"`

	// Sheet selects the worksheet of .xlsx inputs; empty means the first.
	Sheet string `json:"sheet" yaml:"sheet" toml:"sheet"`

	// HeaderRow is the 0-based row holding the column names.
	HeaderRow int `json:"header_row" yaml:"header_row" toml:"header_row"`

	// Workers is the goroutine count of the aggregation pre-pass.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`

	// ProgressEvery logs progress every n rows (0 disables).
	ProgressEvery int `json:"progress_every" yaml:"progress_every" toml:"progress_every"`

	// CheckpointEvery journals a checkpoint every n rows (0 = final only).
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every" toml:"checkpoint_every"`
}

// DefaultConfig returns the default configuration.
//
// Column names and limits match the workbooks the tool was first written
// for: three hero identifier columns and a 场次 (match count) column.
func DefaultConfig() Config {
	return Config{
		IdentifierColumns: []string{"ID1", "heroID2", "heroID3"},
		AuxiliarySumField: "场次",
		MaxPairDuplicates: 3,
		MaxValueFrequency: 3,
		HeaderRow:         0,
		Workers:           engine.DefaultWorkers,
		ProgressEvery:     engine.DefaultProgressEvery,
		CheckpointEvery:   engine.DefaultCheckpointEvery,
	}
}

// MaxWorkers bounds the Workers setting.
const MaxWorkers = 64

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if len(c.IdentifierColumns) != 3 {
		return invalid("identifier_columns", "must name exactly 3 columns (got %d)", len(c.IdentifierColumns))
	}
	seen := make(map[string]bool, 3)
	for _, col := range c.IdentifierColumns {
		if strings.TrimSpace(col) == "" {
			return invalid("identifier_columns", "cannot contain an empty name")
		}
		if seen[col] {
			return invalid("identifier_columns", "names %q twice", col)
		}
		seen[col] = true
	}
	if strings.TrimSpace(c.AuxiliarySumField) == "" {
		return invalid("auxiliary_sum_field", "cannot be empty")
	}
	if seen[c.AuxiliarySumField] {
		return invalid("auxiliary_sum_field", "cannot be an identifier column (%q)", c.AuxiliarySumField)
	}
	if c.MaxPairDuplicates < 0 {
		return invalid("max_pair_duplicates", "cannot be negative (got %d)", c.MaxPairDuplicates)
	}
	if c.MaxValueFrequency < 1 {
		return invalid("max_value_frequency", "must be at least 1 (got %d)", c.MaxValueFrequency)
	}
	if c.HeaderRow < 0 {
		return invalid("header_row", "cannot be negative (got %d)", c.HeaderRow)
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return invalid("workers", "must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	}
	if c.ProgressEvery < 0 {
		return invalid("progress_every", "cannot be negative (got %d)", c.ProgressEvery)
	}
	if c.CheckpointEvery < 0 {
		return invalid("checkpoint_every", "cannot be negative (got %d)", c.CheckpointEvery)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{IDs: [%s], Sum: %s, MaxPair: %d, MaxValue: %d, Sheet: %q, HeaderRow: %d, "+
			"Workers: %d, ProgressEvery: %d, CheckpointEvery: %d}",
		strings.Join(c.IdentifierColumns, ", "), c.AuxiliarySumField,
		c.MaxPairDuplicates, c.MaxValueFrequency, c.Sheet, c.HeaderRow,
		c.Workers, c.ProgressEvery, c.CheckpointEvery,
	)
}

// Limits returns the engine limits of the configuration.
func (c Config) Limits() engine.Limits {
	return engine.Limits{
		MaxPairDuplicates: c.MaxPairDuplicates,
		MaxValueFrequency: c.MaxValueFrequency,
	}
}

// Columns returns the table columns the engine reads.
// Call only on a validated configuration.
func (c Config) Columns() table.Columns {
	var ids [3]string
	copy(ids[:], c.IdentifierColumns)
	return table.Columns{IDs: ids, Sum: c.AuxiliarySumField}
}

// ReadOptions returns the table read options of the configuration.
func (c Config) ReadOptions() table.ReadOptions {
	return table.ReadOptions{Sheet: c.Sheet, HeaderRow: c.HeaderRow}
}

// Hash identifies the settings that influence decisions. Two runs with the
// same hash over the same input make the same decisions; workers, progress
// and checkpoint intervals are excluded.
func (c Config) Hash() (string, error) {
	return ir.ContentHash(ir.DomainConfig, c.decisionFields())
}

// MarshalCanonical encodes the settings covered by Hash as canonical JSON.
func (c Config) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(c.decisionFields())
}

func (c Config) decisionFields() map[string]any {
	return map[string]any{
		"identifier_columns":  c.IdentifierColumns,
		"auxiliary_sum_field": c.AuxiliarySumField,
		"max_pair_duplicates": c.MaxPairDuplicates,
		"max_value_frequency": c.MaxValueFrequency,
		"sheet":               c.Sheet,
		"header_row":          c.HeaderRow,
	}
}
