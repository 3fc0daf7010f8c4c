package repository

import (
	"fmt"
	"math"
	"strings"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = math.MaxInt / maxPageSize
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Page describes pagination and ordering of a list query.
type Page struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize clamps paging to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if !strings.EqualFold(p.SortOrder, "asc") {
		p.SortOrder = "desc"
	} else {
		p.SortOrder = "asc"
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// orderBy renders an ORDER BY clause from a whitelist of sortable columns.
func (p Page) orderBy(columns map[string]string, fallback string) string {
	column, ok := columns[p.SortBy]
	if !ok {
		column = columns[fallback]
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, strings.ToUpper(p.SortOrder))
}

func (p Page) limitOffset() string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset())
}

// whereBuilder accumulates positional SQL predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func newWhere() *whereBuilder {
	return &whereBuilder{clauses: []string{"1=1"}}
}

// add appends a predicate; each %s in format is replaced with the next placeholder.
func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

// search adds a case-insensitive contains match across columns.
func (w *whereBuilder) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	w.args = append(w.args, containsPattern(term))
	placeholder := fmt.Sprintf("$%d", len(w.args))
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, placeholder)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

// containsPattern lower-cases term and escapes LIKE wildcards for use with ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

func (w *whereBuilder) String() string {
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
