// Package querysql compiles read-side queries over the ledger to
// parameterised SQLite.
//
// Every compiled query has an ORDER BY clause and every value is bound
// through a ? placeholder, never interpolated.
package querysql

// Query is a compilable query. Only Select implements it.
type Query interface {
	isQuery()
}

// Select is a SELECT over one source.
//
// Columns, From, GroupBy and OrderBy are trusted SQL fragments written by the
// caller. Values from user input go through Where only.
type Select struct {
	Columns []string
	From    string
	Where   Predicate
	GroupBy []string
	OrderBy []string
}

func (Select) isQuery() {}

// Predicate is a boolean condition in a WHERE clause.
type Predicate interface {
	isPredicate()
}

// Equals matches Field = Value.
type Equals struct {
	Field string
	Value any
}

// Contains matches rows whose Field contains Value as a substring.
// LIKE wildcards in Value are matched literally.
type Contains struct {
	Field string
	Value string
}

// In matches Field IN (Values...). An empty list matches nothing.
type In struct {
	Field  string
	Values []any
}

// Exists matches when the subquery returns a row. The subquery is trusted
// SQL; Args are bound to its placeholders in order.
type Exists struct {
	Subquery string
	Args     []any
}

// And is the conjunction of its predicates. An empty And is always true.
type And []Predicate

func (Equals) isPredicate()   {}
func (Contains) isPredicate() {}
func (In) isPredicate()       {}
func (Exists) isPredicate()   {}
func (And) isPredicate()      {}
