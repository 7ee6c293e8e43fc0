package repository

import (
	"fmt"
	"strings"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/lib/pq"
)

// whereClause accumulates filter predicates and their positional arguments.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) anyOf(column string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	w.args = append(w.args, pq.Array(ids))
	w.conds = append(w.conds, fmt.Sprintf("%s = ANY($%d)", column, len(w.args)))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// limitOffset appends LIMIT and OFFSET placeholders and returns the SQL fragment.
func (w *whereClause) limitOffset(req model.PageRequest) string {
	w.args = append(w.args, req.Size, req.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

// orderBy renders an ORDER BY clause. Nulls sort last ascending and first
// descending. The primary key is appended as a tie-breaker.
func orderBy(sorts []model.Sort, columns map[string]string) (string, error) {
	parts := make([]string, 0, len(sorts)+1)
	hasID := false
	for _, s := range sorts {
		col, ok := columns[s.Property]
		if !ok {
			return "", fmt.Errorf("unsupported sort property %q", s.Property)
		}
		if s.Property == "id" {
			hasID = true
		}
		if s.Desc {
			parts = append(parts, col+" DESC NULLS FIRST")
		} else {
			parts = append(parts, col+" ASC NULLS LAST")
		}
	}
	if !hasID {
		parts = append(parts, columns["id"]+" ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
