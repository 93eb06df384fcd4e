package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the moderation lifecycle state of a listing.
type Status string

const (
	// StatusPendingReview is the only state a listing can be created in.
	StatusPendingReview Status = "PENDING_REVIEW"
	// StatusPublished is terminal: the listing is publicly visible.
	StatusPublished Status = "PUBLISHED"
	// StatusBanned is terminal: the listing failed moderation.
	StatusBanned Status = "BANNED"
)

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusBanned
}

// Scope is the geographic reach of a listing. The feed query applies the
// scope-specific filters; this service only stores them.
type Scope string

const (
	ScopeNational     Scope = "NATIONAL"
	ScopeState        Scope = "STATE"
	ScopeMunicipality Scope = "MUNICIPALITY"
	ScopeRadius       Scope = "RADIUS"
)

// ValidScope reports whether s is a known scope value.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeNational, ScopeState, ScopeMunicipality, ScopeRadius:
		return true
	}
	return false
}

// Listing is a user-submitted reward posting subject to moderation before
// becoming publicly visible.
//
// Invariant: RiskScore is set if and only if Status is terminal. The score is
// persisted in the same conditional update that performs the terminal
// transition.
type Listing struct {
	ID          uuid.UUID
	Title       string
	Description string
	Category    string

	// AmountCents is the reward in integer minor currency units.
	AmountCents int64
	Deadline    time.Time

	Scope      Scope
	RegionUF   string
	RegionCity string
	Lat        *float64
	Lng        *float64
	RadiusKM   *float64

	Status    Status
	RiskScore *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feed filters for the published read path. Scope-specific geo filtering is
// applied by the caller; the store only narrows by status and category.
type FeedFilter struct {
	Category string
	Scope    Scope
	Limit    int
}
