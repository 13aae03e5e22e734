// Package harness runs admission scenarios against the engine.
//
// A scenario lists records and limits, runs them through a fresh engine
// journaled into an in-memory store, and checks the admitted set.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pair_ceiling
//	description: "A zero pair limit still admits one record per pair"
//	limits:
//	  max_pair_duplicates: 0
//	  max_value_frequency: 3
//	records:
//	  - [A, B, C, 10]
//	  - [A, B, D, 5]
//	expect:
//	  admitted: [0]
//	  aux: {0: 10}
//	  outcomes: {1: pair_limit}
//
// Each record is [id0, id1, id2, aux]. Identifiers may be strings or
// integers; aux must be an integer.
//
// # Expectations
//
//   - admitted: the exact admitted rows, in input order
//   - aux: the aggregated sum reported for an admitted row
//   - outcomes: the outcome name of individual rows
//   - stats: counters of the run (subset match)
//
// Every run is also checked with engine.Verify, so an admitted set that
// breaks a limit fails the scenario even without expectations.
//
// # Deterministic Testing
//
// Runs use a fixed run ID and a step clock, so the decision trace is
// identical across runs and can be compared with golden files:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pair_ceiling.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
