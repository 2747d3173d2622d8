package collection

import (
	"slices"

	"profiledeck/internal/profile"
	"profiledeck/internal/scanner"
)

// state is owned by the Manager loop goroutine.
type state struct {
	all     []profile.Record // discovery order, replaced wholesale
	visible []profile.Record
	query   string
	sort    profile.SortKey

	loading    bool
	err        error
	warnings   []scanner.Warning
	skipped    int
	generation uint64

	scanning bool
	pending  bool                // another scan is owed once the running one commits
	waiters  []chan<- error      // served by the running scan
	next     []chan<- error      // served by the follow-up scan
	deleted  map[string]struct{} // source paths trashed during the running scan

	subs map[chan Snapshot]struct{}
}

// recompute derives visible from all, query and sort.
func (s *state) recompute(sorter *profile.Sorter) {
	s.visible = sorter.Sort(profile.Filter(s.all, s.query), s.sort)
}

// withoutPaths drops records whose source path is in paths.
func withoutPaths(records []profile.Record, paths map[string]struct{}) []profile.Record {
	if len(paths) == 0 {
		return records
	}
	return slices.DeleteFunc(slices.Clone(records), func(r profile.Record) bool {
		_, gone := paths[r.SourcePath]
		return gone
	})
}

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Visible:    s.visible,
		All:        s.all,
		Query:      s.query,
		Sort:       s.sort,
		Loading:    s.loading,
		Err:        s.err,
		Warnings:   s.warnings,
		Skipped:    s.skipped,
		Generation: s.generation,
	}
}
