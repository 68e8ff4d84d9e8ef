// Package ledger provides the record types shared by every mealledger component.
//
// This package contains type definitions only. All other internal packages
// import ledger; ledger imports nothing internal.
//
// Key design constraints:
//   - Every record type is explicit, with every field present and defaulted
//   - Counts are int64 and never negative
//   - Week numbers are two-digit zero-padded strings ("02", "45")
//   - Territory is never empty: unresolved schools carry Unassigned
//   - All JSON tags use snake_case
package ledger
