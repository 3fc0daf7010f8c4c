package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	p := Page{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "desc", p.SortOrder)

	p = Page{Page: 3, Limit: 500, SortOrder: "ASC"}.Normalize()
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, "asc", p.SortOrder)
	assert.Equal(t, 200, p.Offset())
}

func TestOrderByUsesWhitelist(t *testing.T) {
	p := Page{SortBy: "password_hash; DROP TABLE users", SortOrder: "asc"}.Normalize()
	assert.Equal(t, " ORDER BY created_at ASC", p.orderBy(userSortColumns, "createdAt"))

	p = Page{SortBy: "email"}.Normalize()
	assert.Equal(t, " ORDER BY email DESC", p.orderBy(userSortColumns, "createdAt"))
}

func TestWhereBuilderPlaceholders(t *testing.T) {
	visible := "u1"
	where := leadScope(&visible)
	where.add("l.status=%s", "NEW")
	where.search("Acme", "l.first_name", "l.company")

	assert.Equal(t, ` WHERE 1=1 AND (l.created_by_id=$1 OR l.assigned_to_id=$2) AND l.status=$3 AND (LOWER(l.first_name) LIKE $4 ESCAPE '\' OR LOWER(l.company) LIKE $4 ESCAPE '\')`, where.String())
	assert.Equal(t, []any{"u1", "u1", "NEW", "%acme%"}, where.args)
}

func TestPageOffsetNeverOverflows(t *testing.T) {
	p := Page{Page: 1 << 62, Limit: 100}.Normalize()
	assert.Equal(t, math.MaxInt/maxPageSize, p.Page)
	assert.Positive(t, p.Offset())
	assert.Equal(t, (math.MaxInt/maxPageSize-1)*100, p.Offset())

	p = Page{Page: math.MaxInt, Limit: 10}.Normalize()
	assert.Positive(t, p.Offset())
}

func TestSearchEscapesWildcards(t *testing.T) {
	where := newWhere()
	where.search(`50%_off\`, "c.company")

	assert.Equal(t, []any{`%50\%\_off\\%`}, where.args)
	assert.Equal(t, "%acme%", containsPattern("ACME"))
	assert.Equal(t, `%\%%`, containsPattern("%"))
}
