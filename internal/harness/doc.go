// Package harness runs ledger scenarios as executable contract tests.
//
// A scenario feeds extractor dumps through the ingestion pipeline into a
// fresh ledger, applies registry steps (strikes, manual corrections,
// territory assignments, syncs) and then checks the reports the ledger
// produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	refdata: compass.cue            # relative to the scenario file
//	run_id: run-fixed
//	documents:
//	  - name: week12.txt
//	    lines:
//	      - "Meal order week 12 from 18/03/2024"
//	      - "Place of meal collection Regime Monday Tuesday Thursday Friday"
//	      - "SCHOOL ALPHA ELEMENTARY STANDARD 12 8 0 15"
//	steps:
//	  - ingest: [week12.txt]
//	    expect: { processed: 1, rows_inserted: 1 }
//	  - strike: { school_year: 2023-2024, week_number: "12", day: monday }
//	assertions:
//	  - type: record
//	    where: { school_type: SCHOOL ALPHA ELEMENTARY, regime: STANDARD }
//	    expect: { monday: 12, total: 35 }
//	  - type: summary
//	    where: { base_school: SCHOOL ALPHA }
//	    expect: { total_mon: 0, grand_total: 23 }
//
// Each step holds exactly one of ingest, strike, manual, assign or sync.
// Documents carry either lines in reading order or positioned page
// fragments, exactly like files read by the ingest command.
//
// # Assertion Types
//
//   - record: one stored delivery row selected by where
//   - record_count: the number of rows matching filter and where
//   - summary: one strike-adjusted summary row
//   - rollup: a territory rollup, or one of its regime rows when where is set
//   - compliance: a compliance report for week, or one of its school rows
//   - school: one school to territory assignment
//   - document: the ingest outcome of one document
//   - trace_contains: an extractor transition for a document
//   - trace_count: the number of transitions of one kind for a document
//
// Where and expect are subset matches against the JSON form of the selected
// value. Week numbers are strings and must be quoted.
//
// # Deterministic Testing
//
// Every run uses a fresh database in a temporary directory, a repeating run
// id and a single extraction worker, so reports and traces are identical
// across runs and can be compared against golden files.
package harness
