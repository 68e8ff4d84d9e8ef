package querysql

import (
	"fmt"
	"regexp"
	"strings"
)

// identifier matches column references such as "d.week_number".
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// likeEscaper escapes LIKE wildcards so Contains matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Compile converts a query to parameterised SQL.
// Returns (sql, params, error).
//
// A query without ORDER BY is rejected: results must be deterministic.
func Compile(q Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case Select:
		return compileSelect(query)
	case *Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("select without FROM")
	}
	if len(q.OrderBy) == 0 {
		return "", nil, fmt.Errorf("select from %s without ORDER BY", q.From)
	}

	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, q.From)

	var params []any
	if q.Where != nil {
		where, whereParams, err := compilePredicate(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.GroupBy, ", "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(q.OrderBy, ", "))

	return b.String(), params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// Values are never interpolated.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		if err := checkField(pred.Field); err != nil {
			return "", nil, err
		}
		return pred.Field + " = ?", []any{pred.Value}, nil
	case Contains:
		if err := checkField(pred.Field); err != nil {
			return "", nil, err
		}
		return pred.Field + ` LIKE '%' || ? || '%' ESCAPE '\'`, []any{likeEscaper.Replace(pred.Value)}, nil
	case In:
		if err := checkField(pred.Field); err != nil {
			return "", nil, err
		}
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), append([]any(nil), pred.Values...), nil
	case Exists:
		return "EXISTS (" + pred.Subquery + ")", append([]any(nil), pred.Args...), nil
	case And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileAnd(and And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and {
		if pred == nil {
			continue
		}
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}
	return strings.Join(parts, " AND "), params, nil
}

func checkField(field string) error {
	if !identifier.MatchString(field) {
		return fmt.Errorf("invalid field %q", field)
	}
	return nil
}
