package handler

import (
	"time"

	"recompensa/internal/listing/models"
	"recompensa/internal/moderation/audit"
)

// CreateListingResponse is the HTTP response for POST /listings.
type CreateListingResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListingResponse is the full listing representation for GET endpoints.
type ListingResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Deadline    string    `json:"deadline"`
	Scope       string    `json:"scope"`
	RegionUF    string    `json:"region_uf,omitempty"`
	RegionCity  string    `json:"region_city,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	RadiusKM    *float64  `json:"radius_km,omitempty"`
	Status      string    `json:"status"`
	RiskScore   *int      `json:"risk_score,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FeedResponse is the HTTP response for GET /listings.
type FeedResponse struct {
	Listings []ListingResponse `json:"listings"`
}

// EventResponse is one ledger entry in GET /listings/{id}/events.
type EventResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// EventsResponse is the HTTP response for GET /listings/{id}/events.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

// FromListing converts a domain listing to its HTTP representation.
func FromListing(listing *models.Listing) ListingResponse {
	return ListingResponse{
		ID:          listing.ID.String(),
		Title:       listing.Title,
		Description: listing.Description,
		Category:    listing.Category,
		AmountCents: listing.AmountCents,
		Deadline:    listing.Deadline.Format("2006-01-02"),
		Scope:       string(listing.Scope),
		RegionUF:    listing.RegionUF,
		RegionCity:  listing.RegionCity,
		Lat:         listing.Lat,
		Lng:         listing.Lng,
		RadiusKM:    listing.RadiusKM,
		Status:      string(listing.Status),
		RiskScore:   listing.RiskScore,
		CreatedAt:   listing.CreatedAt,
	}
}

// FromListings converts a feed page.
func FromListings(listings []models.Listing) FeedResponse {
	out := FeedResponse{Listings: make([]ListingResponse, 0, len(listings))}
	for i := range listings {
		out.Listings = append(out.Listings, FromListing(&listings[i]))
	}
	return out
}

// FromEvents converts ledger entries.
func FromEvents(events []audit.Event) EventsResponse {
	out := EventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, event := range events {
		out.Events = append(out.Events, EventResponse{
			ID:        event.ID.String(),
			Action:    event.Action,
			Reason:    event.Reason,
			CreatedAt: event.CreatedAt,
		})
	}
	return out
}
