package catalog

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// VenueFilter narrows venue listings. Zero values mean "no predicate".
type VenueFilter struct {
	City        string
	Name        string
	MinCapacity int
	Limit       int
	Offset      int
}

// EventFilter narrows event listings. Zero values mean "no predicate".
type EventFilter struct {
	VenueID       string
	Category      string
	Status        string
	Name          string
	From          time.Time
	To            time.Time
	MaxPriceCents int64
	Limit         int
	Offset        int
}

// clauseBuilder composes parameterized WHERE predicates. Each expr contains
// one %d verb that receives the positional placeholder index.
type clauseBuilder struct {
	conds []string
	args  []any
}

func (b *clauseBuilder) add(expr string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(expr, len(b.args)))
}

// clause renders the accumulated predicates as a WHERE fragment (or "") and
// the matching argument list.
func (b *clauseBuilder) clause() (string, []any) {
	if len(b.conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(b.conds, " and "), b.args
}

// Clause compiles the filter into a SQL WHERE fragment with positional args.
func (f VenueFilter) Clause() (string, []any) {
	var b clauseBuilder
	if city := strings.TrimSpace(f.City); city != "" {
		b.add("lower(city) = lower($%d)", city)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		b.add("name ilike $%d", "%"+name+"%")
	}
	if f.MinCapacity > 0 {
		b.add("capacity >= $%d", f.MinCapacity)
	}
	return b.clause()
}

// Page returns the effective limit and offset.
func (f VenueFilter) Page() (limit, offset int) {
	return pageBounds(f.Limit, f.Offset)
}

// Clause compiles the filter into a SQL WHERE fragment with positional args.
func (f EventFilter) Clause() (string, []any) {
	var b clauseBuilder
	if id := strings.TrimSpace(f.VenueID); id != "" {
		b.add("venue_id = $%d", id)
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		b.add("lower(category) = lower($%d)", cat)
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		b.add("status = $%d", status)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		b.add("name ilike $%d", "%"+name+"%")
	}
	if !f.From.IsZero() {
		b.add("starts_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		b.add("starts_at <= $%d", f.To)
	}
	if f.MaxPriceCents > 0 {
		b.add("price_cents <= $%d", f.MaxPriceCents)
	}
	return b.clause()
}

// Page returns the effective limit and offset.
func (f EventFilter) Page() (limit, offset int) {
	return pageBounds(f.Limit, f.Offset)
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
