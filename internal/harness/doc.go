// Package harness provides conformance testing for rule sets.
//
// A scenario names CUE rule files, optional N-Quads fact files, run limits
// and assertions on the production store. The harness compiles the rules,
// runs the engine to its fixpoint and checks the outcome.
//
// # Scenario Format
//
//	name: person-role
//	description: "existential role is minted once"
//	rules:
//	  - rules/person.cue
//	facts:
//	  - facts/people.nq
//	max_passes: 10
//	backend: sqlite
//	assertions:
//	  - type: contains
//	    quad: "<http://example.org/alice> <http://example.org/hasRole> _:sk_0 ."
//	  - type: count
//	    count: 2
//
// # Assertion Types
//
//   - contains: the N-Quads statement is in the production store
//   - absent: the N-Quads statement is not in the production store
//   - count: the production store holds exactly count quads
//   - passes: the run took exactly count passes
//   - error: the run aborted with the given engine error code
//
// A run that aborts fails the scenario unless an error assertion expects it.
//
// # Deterministic Testing
//
// Every scenario starts with fresh stores and a fresh skolem counter, so
// minted identifiers (sk_0, sk_1, ...) are reproducible. The "memory"
// backend uses store.Memory; the "sqlite" backend uses an in-memory SQLite
// database and the SQL evaluator. Engine logs are discarded.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/person_role.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//
// In tests, RunWithGolden also compares the sorted production store with
// testdata/golden/<name>.golden.
package harness
