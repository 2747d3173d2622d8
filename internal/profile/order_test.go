package profile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiledeck/internal/profile"
)

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []profile.Record {
	return []profile.Record{
		{UUID: "C-3", Name: "zeta", TeamName: "Beta Corp", CreatedAt: day(3), ExpiresAt: day(20)},
		{UUID: "A-1", Name: "Alpha", TeamName: "acme", CreatedAt: day(1), ExpiresAt: day(25)},
		{UUID: "B-2", Name: "émile", TeamName: "Acme", CreatedAt: day(2), ExpiresAt: day(20)},
		{UUID: "D-4", Name: "beta", TeamName: "", CreatedAt: day(4), ExpiresAt: day(10)},
	}
}

func uuids(records []profile.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.UUID
	}
	return out
}

func TestParseField(t *testing.T) {
	f, err := profile.ParseField(" Expires_At ")
	require.NoError(t, err)
	assert.Equal(t, profile.FieldExpiresAt, f)

	f, err = profile.ParseField("")
	require.NoError(t, err)
	assert.Equal(t, profile.FieldNone, f)

	_, err = profile.ParseField("size")
	assert.Error(t, err)
}

func TestSorter_Sort(t *testing.T) {
	s := profile.NewSorter("en")
	records := sampleRecords()

	tests := []struct {
		key  profile.SortKey
		want []string
	}{
		{profile.SortKey{Field: profile.FieldName, Ascending: true}, []string{"A-1", "D-4", "B-2", "C-3"}},
		{profile.SortKey{Field: profile.FieldName, Ascending: false}, []string{"C-3", "B-2", "D-4", "A-1"}},
		{profile.SortKey{Field: profile.FieldCreatedAt, Ascending: true}, []string{"A-1", "B-2", "C-3", "D-4"}},
		// Equal expiry keeps input order (C-3 before B-2) in both directions.
		{profile.SortKey{Field: profile.FieldExpiresAt, Ascending: true}, []string{"D-4", "C-3", "B-2", "A-1"}},
		{profile.SortKey{Field: profile.FieldExpiresAt, Ascending: false}, []string{"A-1", "C-3", "B-2", "D-4"}},
		{profile.SortKey{Field: profile.FieldUUID, Ascending: true}, []string{"A-1", "B-2", "C-3", "D-4"}},
		{profile.SortKey{Field: profile.FieldNone}, []string{"C-3", "A-1", "B-2", "D-4"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key.Field), func(t *testing.T) {
			got := s.Sort(records, tt.key)
			assert.Equal(t, tt.want, uuids(got))
		})
	}

	assert.Equal(t, []string{"C-3", "A-1", "B-2", "D-4"}, uuids(records), "input must not be reordered")
}

func TestSorter_TeamNameIgnoresCase(t *testing.T) {
	s := profile.NewSorter("en_US.UTF-8")
	got := s.Sort(sampleRecords(), profile.SortKey{Field: profile.FieldTeamName, Ascending: true})
	// "acme" and "Acme" collate equal so they keep input order.
	assert.Equal(t, []string{"D-4", "A-1", "B-2", "C-3"}, uuids(got))
}

func TestSorter_ExpiresAscendingIsMonotonic(t *testing.T) {
	s := profile.NewSorter("")
	got := s.Sort(sampleRecords(), profile.SortKey{Field: profile.FieldExpiresAt, Ascending: true})
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].ExpiresAt.Before(got[i-1].ExpiresAt))
	}
}

func TestSorter_ResortIsNoop(t *testing.T) {
	s := profile.NewSorter("C")
	key := profile.SortKey{Field: profile.FieldTeamName, Ascending: true}
	once := s.Sort(sampleRecords(), key)
	twice := s.Sort(once, key)
	assert.Equal(t, uuids(once), uuids(twice))
}

func TestFilter(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"C-3", "A-1", "B-2", "D-4"}},
		{"ACME", []string{"A-1", "B-2"}},
		{"Beta", []string{"C-3", "D-4"}},
		{"a-1", []string{"A-1"}},
		{"ÉMILE", []string{"B-2"}},
		{"nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := profile.Filter(records, tt.query)
			assert.Equal(t, tt.want, uuids(got))
		})
	}
}

func TestMatcher_AgreesWithFilter(t *testing.T) {
	records := sampleRecords()
	for _, q := range []string{"", "a", "corp", "-", "zz"} {
		m := profile.NewMatcher(q)
		var want []string
		for _, r := range records {
			if m.Match(r) {
				want = append(want, r.UUID)
			}
		}
		got := uuids(profile.Filter(records, q))
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, got, "query %q", q)
	}
}
