package identity

import (
	"strings"

	"github.com/roach88/mealledger/internal/ledger"
)

// Resolver maps base school names to territory names.
//
// Resolve performs a full linear scan over every territory and every member, in
// definition order: O(territories × members) per call. At reference-list scale
// (tens of territories, low hundreds of schools) this is negligible; it is the
// dominant cost of ingestion if the reference set grows, in which case
// WithExactIndex adds a hash lookup in front of the scan.
//
// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	territories []folded
	exact       map[string]string // folded member -> territory name, first definition wins
}

type folded struct {
	name    string
	members []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExactIndex enables an exact-match hash lookup before the substring scan.
//
// An exact hit returns immediately, so a school that exactly names a member of a
// later territory but is also a substring match for an earlier one resolves to the
// later territory. The default scan resolves it to the earlier one.
func WithExactIndex() Option {
	return func(r *Resolver) {
		r.exact = make(map[string]string)
		for _, t := range r.territories {
			for _, m := range t.members {
				if _, ok := r.exact[m]; !ok {
					r.exact[m] = t.name
				}
			}
		}
	}
}

// NewResolver builds a resolver over the territories, preserving their order.
func NewResolver(territories []ledger.Territory, opts ...Option) *Resolver {
	r := &Resolver{territories: make([]folded, 0, len(territories))}
	for _, t := range territories {
		f := folded{name: t.Name, members: make([]string, 0, len(t.Schools))}
		for _, s := range t.Schools {
			if m := Fold(s); m != "" {
				f.members = append(f.members, m)
			}
		}
		r.territories = append(r.territories, f)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the territory for a base school, or ledger.Unassigned.
//
// For each territory in order, each member is compared case- and accent-insensitively:
// exact equality, then school contains member, then member contains school. The first
// territory yielding any match wins.
func (r *Resolver) Resolve(school string) string {
	in := Fold(school)
	if in == "" {
		return ledger.Unassigned
	}
	if r.exact != nil {
		if name, ok := r.exact[in]; ok {
			return name
		}
	}
	for _, t := range r.territories {
		for _, m := range t.members {
			if in == m || strings.Contains(in, m) || strings.Contains(m, in) {
				return t.name
			}
		}
	}
	return ledger.Unassigned
}
