package models

import (
	"time"

	"github.com/google/uuid"

	"libregistry/internal/geo"
)

// Stage describes where a library sits in its registration lifecycle.
type Stage string

const (
	StageTesting    Stage = "testing"
	StageProduction Stage = "production"
)

// Library is a registered catalog server.
//
// Invariants:
//   - OPDSURL is unique across the registry and never empty after creation
//   - SharedSecret, once set, is only replaced by a caller presenting the
//     current secret
//   - Location is either a full latitude/longitude pair or absent
//
// A library is created by its first successful registration handshake. Every
// later successful handshake overwrites the mutable metadata wholesale: a
// field missing from the new authentication document clears the stored value.
// Libraries are never hard-deleted here.
type Library struct {
	ID                uuid.UUID  `json:"id"`
	OPDSURL           string     `json:"opds_url"`
	AuthenticationURL string     `json:"authentication_url,omitempty"`
	Name              string     `json:"name,omitempty"`
	Description       string     `json:"description,omitempty"`
	WebURL            string     `json:"web_url,omitempty"`
	Logo              string     `json:"logo,omitempty"`
	ContactEmail      string     `json:"contact_email,omitempty"`
	HelpEmail         string     `json:"help_email,omitempty"`
	SharedSecret      string     `json:"-"`
	Location          *geo.Point `json:"location,omitempty"`
	PlaceName         string     `json:"place_name,omitempty"`
	Aliases           []string   `json:"aliases,omitempty"`
	Stage             Stage      `json:"stage"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Metadata is the overwrite set projected from a validated authentication
// document onto a library at the end of a handshake. Zero values clear the
// stored field; the projection is a full replacement, not a merge.
type Metadata struct {
	AuthenticationURL string
	Name              string
	Description       string
	WebURL            string
	Logo              string
	ContactEmail      string
	HelpEmail         string
}

// New creates a library for a first-time registration.
func New(id uuid.UUID, opdsURL string, now time.Time) *Library {
	return &Library{
		ID:        id,
		OPDSURL:   opdsURL,
		Stage:     StageTesting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasSecret reports whether the library has completed a first-time bind.
func (l *Library) HasSecret() bool {
	return l.SharedSecret != ""
}

// ApplyMetadata overwrites the mutable fields from a fresh handshake.
// OPDSURL, SharedSecret, Location, and lifecycle fields are untouched.
func (l *Library) ApplyMetadata(m Metadata, now time.Time) {
	l.AuthenticationURL = m.AuthenticationURL
	l.Name = m.Name
	l.Description = m.Description
	l.WebURL = m.WebURL
	l.Logo = m.Logo
	l.ContactEmail = m.ContactEmail
	l.HelpEmail = m.HelpEmail
	l.UpdatedAt = now
}

// SetLocation places the library at a point, or clears placement when p is
// nil. Enforces the all-or-nothing coordinate invariant by construction.
func (l *Library) SetLocation(p *geo.Point, placeName string) {
	l.Location = p
	if p == nil {
		l.PlaceName = ""
		return
	}
	l.PlaceName = placeName
}
