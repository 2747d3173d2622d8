// Package profile decodes installed provisioning profiles into Records.
//
// A profile file is a CMS signed-data envelope around an XML or binary
// property list. DecodeEnvelope unwraps the envelope without checking the
// signature, Extract maps the property list onto a Record, and Parse does
// both for a file on disk.
package profile

import (
	"slices"
	"time"
)

// Record is one decoded provisioning profile. Records are values: a rescan
// replaces them wholesale and nothing mutates one after Extract returns it.
type Record struct {
	SourcePath string    `json:"source_path"`
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	TeamName   string    `json:"team_name"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Optional payload fields; absent keys leave the zero value.
	TeamID               string   `json:"team_id,omitempty"`
	AppIDName            string   `json:"app_id_name,omitempty"`
	Platforms            []string `json:"platforms,omitempty"`
	DeviceCount          int      `json:"device_count,omitempty"`
	ProvisionsAllDevices bool     `json:"provisions_all_devices,omitempty"`
}

// ID is the identity the presentation layer binds selection to.
func (r Record) ID() string { return r.UUID }

// Equal compares every field. Timestamps compare by instant, not location.
func (r Record) Equal(o Record) bool {
	return r.SourcePath == o.SourcePath &&
		r.UUID == o.UUID &&
		r.Name == o.Name &&
		r.TeamName == o.TeamName &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.ExpiresAt.Equal(o.ExpiresAt) &&
		r.TeamID == o.TeamID &&
		r.AppIDName == o.AppIDName &&
		slices.Equal(r.Platforms, o.Platforms) &&
		r.DeviceCount == o.DeviceCount &&
		r.ProvisionsAllDevices == o.ProvisionsAllDevices
}

// Expired reports whether the profile is no longer valid at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ExpiresWithin reports whether the profile is still valid at now but lapses
// within d.
func (r Record) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !r.Expired(now) && r.ExpiresAt.Sub(now) <= d
}
