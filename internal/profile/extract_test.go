package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"profiledeck/internal/profile"
	"profiledeck/internal/profile/profiletest"
)

func TestExtract(t *testing.T) {
	p := profiletest.NewPayload("Acme Dev")
	p.UUID = "A-1"
	p.TeamName = []string{"Acme Inc", "Second Team"}
	p.Extra = map[string]interface{}{
		"ProvisionedDevices":   []interface{}{"d1", "d2", "d3"},
		"ProvisionsAllDevices": false,
	}

	rec, err := profile.Extract("/profiles/a.mobileprovision", profiletest.Plist(t, p.Dict()))
	require.NoError(t, err)

	want := profile.Record{
		SourcePath:  "/profiles/a.mobileprovision",
		UUID:        "A-1",
		Name:        "Acme Dev",
		TeamName:    "Acme Inc",
		CreatedAt:   p.CreatedAt,
		ExpiresAt:   p.ExpiresAt,
		TeamID:      "ABCDE12345",
		AppIDName:   "Acme Dev App",
		Platforms:   []string{"iOS"},
		DeviceCount: 3,
	}
	assert.True(t, want.Equal(rec), cmp.Diff(want, rec))
	assert.Equal(t, "A-1", rec.ID())
}

func TestExtract_TeamNameForms(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		omit  bool
		want  string
	}{
		{"absent", nil, true, ""},
		{"empty list", []interface{}{}, false, ""},
		{"list", []interface{}{"First", "Second"}, false, "First"},
		{"plain string", "Solo", false, "Solo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profiletest.NewPayload("n")
			p.TeamName = nil
			if !tt.omit {
				p.Extra = map[string]interface{}{"TeamName": tt.value}
			}
			rec, err := profile.Extract("x", profiletest.Plist(t, p.Dict()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.TeamName)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *profiletest.Payload)
		kind  profile.ExtractionKind
		key   string
	}{
		{"missing uuid", func(p *profiletest.Payload) { p.Omit = []string{"UUID"} }, profile.KindMissingKey, "UUID"},
		{"empty uuid", func(p *profiletest.Payload) { p.UUID = "" }, profile.KindMissingKey, "UUID"},
		{"missing name", func(p *profiletest.Payload) { p.Omit = []string{"Name"} }, profile.KindMissingKey, "Name"},
		{"missing creation", func(p *profiletest.Payload) { p.Omit = []string{"CreationDate"} }, profile.KindMissingKey, "CreationDate"},
		{"missing expiration", func(p *profiletest.Payload) { p.Omit = []string{"ExpirationDate"} }, profile.KindMissingKey, "ExpirationDate"},
		{"uuid wrong type", func(p *profiletest.Payload) { p.Extra = map[string]interface{}{"UUID": 42} }, profile.KindWrongType, "UUID"},
		{"name wrong type", func(p *profiletest.Payload) { p.Extra = map[string]interface{}{"Name": []interface{}{"x"}} }, profile.KindWrongType, "Name"},
		{"date as string", func(p *profiletest.Payload) { p.Extra = map[string]interface{}{"ExpirationDate": "tomorrow"} }, profile.KindWrongType, "ExpirationDate"},
		{"team name wrong type", func(p *profiletest.Payload) { p.Extra = map[string]interface{}{"TeamName": true} }, profile.KindWrongType, "TeamName"},
		{"team name list of ints", func(p *profiletest.Payload) { p.Extra = map[string]interface{}{"TeamName": []interface{}{7}} }, profile.KindWrongType, "TeamName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profiletest.NewPayload("n")
			tt.build(&p)

			_, err := profile.Extract("x", profiletest.Plist(t, p.Dict()))
			var xe *profile.ExtractionError
			require.True(t, errors.As(err, &xe), "want *ExtractionError, got %v", err)
			assert.Equal(t, tt.kind, xe.Kind)
			assert.Equal(t, tt.key, xe.Key)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestExtract_InvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"array at top level", profiletest.Plist(t, []string{"a", "b"})},
		{"unterminated xml", []byte("<plist><dict><key>x</key>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := profile.Extract("x", tt.payload)
			var xe *profile.ExtractionError
			require.True(t, errors.As(err, &xe), "want *ExtractionError, got %v", err)
			assert.Equal(t, profile.KindInvalidPayload, xe.Kind)
			assert.Empty(t, xe.Key)
		})
	}
}

func TestExtract_OptionalWrongTypesIgnored(t *testing.T) {
	p := profiletest.NewPayload("n")
	p.Extra = map[string]interface{}{
		"TeamIdentifier":       "not-a-list",
		"AppIDName":            12,
		"Platform":             []interface{}{1, 2},
		"ProvisionedDevices":   "all of them",
		"ProvisionsAllDevices": "yes",
	}

	rec, err := profile.Extract("x", profiletest.Plist(t, p.Dict()))
	require.NoError(t, err)
	assert.Empty(t, rec.TeamID)
	assert.Empty(t, rec.AppIDName)
	assert.Nil(t, rec.Platforms)
	assert.Zero(t, rec.DeviceCount)
	assert.False(t, rec.ProvisionsAllDevices)
}

// Decoding a profile, re-encoding its payload and extracting again must
// give the same record.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := profiletest.NewPayload("Round Trip")
	p.Extra = map[string]interface{}{"ProvisionsAllDevices": true}
	path := profiletest.WriteProfile(t, dir, "rt.mobileprovision", p)

	first, err := profile.Parse(path)
	require.NoError(t, err)

	dict, err := profile.DecodePayload(mustPayload(t, path))
	require.NoError(t, err)

	for _, format := range []int{plist.XMLFormat, plist.BinaryFormat} {
		reencoded, err := plist.Marshal(dict, format)
		require.NoError(t, err)

		second, err := profile.ParseBytes(path, profiletest.Signed(t, reencoded))
		require.NoError(t, err)
		assert.True(t, first.Equal(second), cmp.Diff(first, second))
	}
}

func TestParse(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is an I/O error", func(t *testing.T) {
		_, err := profile.Parse(filepath.Join(dir, "nope"))
		require.Error(t, err)
		assert.False(t, profile.IsMalformed(err))
	})

	t.Run("zero byte file is malformed", func(t *testing.T) {
		path := profiletest.Write(t, dir, "empty.mobileprovision", nil)
		_, err := profile.Parse(path)
		require.Error(t, err)
		assert.True(t, profile.IsMalformed(err))
		assert.ErrorIs(t, err, profile.ErrTruncated)
	})

	t.Run("envelope around junk payload", func(t *testing.T) {
		path := profiletest.Write(t, dir, "junk.mobileprovision", profiletest.Signed(t, []byte{0xde, 0xad}))
		_, err := profile.Parse(path)
		var xe *profile.ExtractionError
		require.True(t, errors.As(err, &xe))
	})
}

func TestRecord_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := profile.Record{ExpiresAt: now.Add(48 * time.Hour)}

	assert.False(t, rec.Expired(now))
	assert.True(t, rec.Expired(now.Add(48*time.Hour)))
	assert.True(t, rec.ExpiresWithin(now, 72*time.Hour))
	assert.False(t, rec.ExpiresWithin(now, 24*time.Hour))
	assert.False(t, rec.ExpiresWithin(now.Add(72*time.Hour), 24*time.Hour))
}

func TestRecord_Equal(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := profile.Record{UUID: "u", Name: "n", CreatedAt: at, ExpiresAt: at, Platforms: []string{"iOS"}}
	b := a
	b.CreatedAt = at.In(time.FixedZone("x", 3600))
	assert.True(t, a.Equal(b))

	b.Platforms = []string{"macOS"}
	assert.False(t, a.Equal(b))

	c := a
	c.SourcePath = "/elsewhere"
	assert.False(t, a.Equal(c))
}

func mustPayload(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	payload, err := profile.DecodeEnvelope(raw)
	require.NoError(t, err)
	return payload
}
