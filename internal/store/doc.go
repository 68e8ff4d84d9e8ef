// Package store provides SQLite-backed persistence for delivery records.
//
// The store holds four tables:
//   - deliveries: one row per school, school type, week, school year and regime
//   - school_details: the territory each base school belongs to
//   - territory_overrides: hand-made assignments that win over resolution
//   - strike_days: (school year, week, weekday) triples zeroed at query time
//
// # Deduplication
//
// A UNIQUE index on (base_school, school_type, week_number, school_year, regime)
// backs every insert. Inserts use ON CONFLICT DO NOTHING and report Skipped
// when the key already exists; the stored row is never modified by ingestion.
//
// # Transactions
//
// Batch groups many documents in one transaction. Tx.Document wraps each
// document in a SAVEPOINT so a failing document is rolled back alone while the
// rest of the group commits.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - One open connection: the store is the single writer
package store
