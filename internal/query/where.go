package query

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed predicates with positional pgx placeholders.
// The same Where feeds both the COUNT query and the page query so the two
// can never filter differently.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a predicate. Each "?" in expr is replaced by the next $n placeholder
// and consumes one value from args, in order.
func (w *Where) Add(expr string, args ...any) {
	var b strings.Builder
	next := 0
	for _, r := range expr {
		if r == '?' && next < len(args) {
			w.args = append(w.args, args[next])
			next++
			fmt.Fprintf(&b, "$%d", len(w.args))
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
}

// SQL renders " WHERE a AND b", or an empty string when no predicates exist.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the bound values in placeholder order.
func (w *Where) Args() []any {
	return append([]any(nil), w.args...)
}

// Paged returns the args extended with limit and offset, together with the
// "LIMIT $n OFFSET $m" suffix that binds them.
func (w *Where) Paged(p Page) (string, []any) {
	args := w.Args()
	args = append(args, p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
