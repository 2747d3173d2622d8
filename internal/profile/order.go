package profile

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Field names a sortable Record column.
type Field string

const (
	FieldNone      Field = ""
	FieldName      Field = "name"
	FieldTeamName  Field = "team_name"
	FieldCreatedAt Field = "created_at"
	FieldExpiresAt Field = "expires_at"
	FieldUUID      Field = "uuid"
)

// Fields lists the sortable fields in display order.
var Fields = []Field{FieldName, FieldTeamName, FieldCreatedAt, FieldExpiresAt, FieldUUID}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if f == FieldNone || slices.Contains(Fields, f) {
		return f, nil
	}
	return FieldNone, fmt.Errorf("unknown sort field %q (valid: %v)", s, Fields)
}

// SortKey is the remembered ordering for the visible subset.
type SortKey struct {
	Field     Field `json:"field"`
	Ascending bool  `json:"ascending"`
}

// Comparator orders records.
type Comparator func(a, b Record) int

// Sorter builds locale-aware comparators. A Sorter is not safe for
// concurrent use because the collator keeps internal buffers.
type Sorter struct {
	collator *collate.Collator
}

// NewSorter returns a Sorter collating text for tag. An empty or invalid tag
// falls back to the root locale.
func NewSorter(tag string) *Sorter {
	lang := language.Und
	if tag != "" {
		if t, err := language.Parse(normalizeLocale(tag)); err == nil {
			lang = t
		}
	}
	return &Sorter{collator: collate.New(lang, collate.IgnoreCase)}
}

// Comparator returns the ascending comparator for field, or nil for FieldNone.
func (s *Sorter) Comparator(field Field) Comparator {
	switch field {
	case FieldName:
		return func(a, b Record) int { return s.collator.CompareString(a.Name, b.Name) }
	case FieldTeamName:
		return func(a, b Record) int { return s.collator.CompareString(a.TeamName, b.TeamName) }
	case FieldUUID:
		return func(a, b Record) int { return s.collator.CompareString(a.UUID, b.UUID) }
	case FieldCreatedAt:
		return func(a, b Record) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case FieldExpiresAt:
		return func(a, b Record) int { return a.ExpiresAt.Compare(b.ExpiresAt) }
	default:
		return nil
	}
}

// Sort returns a new slice ordered by key. Ties keep their input order, so
// sorting an already-sorted slice is a no-op.
func (s *Sorter) Sort(records []Record, key SortKey) []Record {
	out := slices.Clone(records)
	cmp := s.Comparator(key.Field)
	if cmp == nil {
		return out
	}
	if !key.Ascending {
		asc := cmp
		cmp = func(a, b Record) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// Matcher is a case-insensitive substring filter over name, team name and
// UUID. The zero query matches everything.
type Matcher struct {
	folded string
	caser  cases.Caser
}

// NewMatcher prepares query for matching.
func NewMatcher(query string) *Matcher {
	c := cases.Fold()
	return &Matcher{folded: c.String(query), caser: c}
}

// Match reports whether r satisfies the query.
func (m *Matcher) Match(r Record) bool {
	if m.folded == "" {
		return true
	}
	return strings.Contains(m.caser.String(r.Name), m.folded) ||
		strings.Contains(m.caser.String(r.TeamName), m.folded) ||
		strings.Contains(m.caser.String(r.UUID), m.folded)
}

// Filter returns the records matching query, preserving order.
func Filter(records []Record, query string) []Record {
	m := NewMatcher(query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// normalizeLocale turns POSIX locale strings like "en_US.UTF-8" into BCP 47.
func normalizeLocale(s string) string {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return "und"
	}
	return strings.ReplaceAll(s, "_", "-")
}
