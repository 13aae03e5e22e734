package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// Scenario defines an admission scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Limits ScenarioLimits `yaml:"limits"`

	// Records are rows of [id0, id1, id2, aux] in input order.
	Records [][]any `yaml:"records"`

	// Workers sets the aggregation concurrency. Zero means 1.
	Workers int `yaml:"workers,omitempty"`

	// CheckpointEvery journals a checkpoint every N rows. Zero means only
	// at the end of the run.
	CheckpointEvery int `yaml:"checkpoint_every,omitempty"`

	Expect Expect `yaml:"expect"`
}

// ScenarioLimits mirrors engine.Limits with YAML names.
type ScenarioLimits struct {
	MaxPairDuplicates int `yaml:"max_pair_duplicates"`
	MaxValueFrequency int `yaml:"max_value_frequency"`
}

// Engine returns the limits as engine.Limits.
func (l ScenarioLimits) Engine() engine.Limits {
	return engine.Limits{MaxPairDuplicates: l.MaxPairDuplicates, MaxValueFrequency: l.MaxValueFrequency}
}

// Expect holds the expected outcome of a scenario. Nil fields are not checked.
type Expect struct {
	// Admitted is the exact list of admitted rows.
	Admitted []int `yaml:"admitted"`

	// Aux maps an admitted row to its aggregated sum.
	Aux map[int]int64 `yaml:"aux,omitempty"`

	// Outcomes maps rows to outcome names (admit, exact_duplicate,
	// pair_limit, value_limit).
	Outcomes map[int]string `yaml:"outcomes,omitempty"`

	// Stats is a subset match on the run counters.
	Stats map[string]int `yaml:"stats,omitempty"`
}

// statNames lists the counters an expect.stats block may name.
var statNames = map[string]func(engine.Stats) int{
	"total_records":    func(s engine.Stats) int { return s.TotalRecords },
	"processed":        func(s engine.Stats) int { return s.Processed },
	"admitted":         func(s engine.Stats) int { return s.Admitted },
	"rejected_exact":   func(s engine.Stats) int { return s.RejectedExact },
	"rejected_pair":    func(s engine.Stats) int { return s.RejectedPair },
	"rejected_value":   func(s engine.Stats) int { return s.RejectedValue },
	"distinct_triples": func(s engine.Stats) int { return s.DistinctTriples },
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("scenario name %q used by %s and %s", s.Name, prev, filepath.Base(p))
		}
		seen[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// BuildRecords converts the scenario rows into engine records.
func (s *Scenario) BuildRecords() ([]ir.Record, error) {
	records := make([]ir.Record, len(s.Records))
	for i, row := range s.Records {
		if len(row) != 4 {
			return nil, fmt.Errorf("records[%d]: want [id0, id1, id2, aux], got %d fields", i, len(row))
		}
		rec := ir.Record{Row: i, Line: i + 1, Cells: make([]string, 4)}
		for j := 0; j < 3; j++ {
			v, err := ir.FromAny(row[j])
			if err != nil {
				return nil, fmt.Errorf("records[%d][%d]: %w", i, j, err)
			}
			rec.IDs[j] = v
			rec.Cells[j] = v.Text()
		}
		aux, ok := row[3].(int)
		if !ok {
			return nil, fmt.Errorf("records[%d]: aux %v is not an integer", i, row[3])
		}
		rec.Aux = int64(aux)
		rec.Cells[3] = fmt.Sprint(aux)
		records[i] = rec
	}
	return records, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.Limits.Engine().Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}
	if _, err := s.BuildRecords(); err != nil {
		return err
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if s.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must be non-negative")
	}
	return validateExpect(&s.Expect, len(s.Records))
}

func validateExpect(e *Expect, rows int) error {
	inRange := func(field string, row int) error {
		if row < 0 || row >= rows {
			return fmt.Errorf("expect.%s: row %d out of range [0, %d)", field, row, rows)
		}
		return nil
	}
	for _, row := range e.Admitted {
		if err := inRange("admitted", row); err != nil {
			return err
		}
	}
	for row := range e.Aux {
		if err := inRange("aux", row); err != nil {
			return err
		}
	}
	for row, name := range e.Outcomes {
		if err := inRange("outcomes", row); err != nil {
			return err
		}
		if _, err := engine.ParseOutcome(name); err != nil {
			return fmt.Errorf("expect.outcomes[%d]: %w", row, err)
		}
	}
	for name := range e.Stats {
		if _, ok := statNames[name]; !ok {
			return fmt.Errorf("expect.stats: unknown counter %q", name)
		}
	}
	return nil
}
