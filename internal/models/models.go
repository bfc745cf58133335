package models

import (
	"time"

	"github.com/google/uuid"
)

// Actor is an authenticated account. Every representative, site and log
// belongs to exactly one owner (OwnerID), which is what isolates one sales
// team's data from another's.
type Actor struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Representative is a salesperson or client contact that can be linked to a Site.
//
// Name is unique per owner (exact, case-sensitive match). Phone is stored in its
// normalized form, or empty.
type Representative struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// SiteStatus is the lifecycle state of a Site.
type SiteStatus string

const (
	StatusNew      SiteStatus = "new"
	StatusActive   SiteStatus = "active"
	StatusComplete SiteStatus = "complete"
)

// Valid reports whether s is one of the known statuses.
func (s SiteStatus) Valid() bool {
	switch s {
	case StatusNew, StatusActive, StatusComplete:
		return true
	}
	return false
}

// Site is a geolocated point being tracked through NEW → ACTIVE → COMPLETE.
//
// AssignedRepID is a pointer because "no rep" is a real state, and it maps
// directly onto a nullable uuid column. Status is ACTIVE exactly when
// AssignedRepID is set.
type Site struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Title         string     `json:"title"`
	Address       string     `json:"address"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	AssignedRepID *uuid.UUID `json:"assigned_rep_id"`
	Status        SiteStatus `json:"status"`
	Photo         []byte     `json:"photo,omitempty"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AssignedTo reports whether the site is ACTIVE and held by repID.
func (s *Site) AssignedTo(repID uuid.UUID) bool {
	return s.Status == StatusActive && s.AssignedRepID != nil && *s.AssignedRepID == repID
}

// Clone returns a deep copy so callers can't mutate cached state through
// the returned pointer.
func (s *Site) Clone() *Site {
	if s == nil {
		return nil
	}
	cp := *s
	if s.AssignedRepID != nil {
		id := *s.AssignedRepID
		cp.AssignedRepID = &id
	}
	if s.Photo != nil {
		cp.Photo = append([]byte(nil), s.Photo...)
	}
	return &cp
}

// ActivityLog records "this rep became associated with this site at this time".
// Logs are append-only: they are created and deleted, never updated.
type ActivityLog struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	RepID   uuid.UUID `json:"rep_id"`
	SiteID  uuid.UUID `json:"site_id"`
	Date    time.Time `json:"date"`
}

// Owner is the isolation boundary: the account a team signs up as. Actors log
// in to an owner, and every entity row carries the owner's id.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
