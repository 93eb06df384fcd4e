package handler

import (
	"strings"
	"time"

	"recompensa/internal/listing/models"
	"recompensa/internal/listing/service"
	derrors "recompensa/pkg/domain-errors"
)

// CreateListingRequest is the HTTP request body for POST /listings.
type CreateListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	AmountCents int64    `json:"amount_cents"`
	Deadline    string   `json:"deadline"`
	Scope       string   `json:"scope"`
	RegionUF    string   `json:"region_uf,omitempty"`
	RegionCity  string   `json:"region_city,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RadiusKM    *float64 `json:"radius_km,omitempty"`

	// Parsed values (populated by Validate)
	parsedDeadline time.Time
}

// Validate parses the transport-level fields. Domain rules (required fields,
// scope combinations) are enforced again by the service.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateListingRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeBadRequest, "request body is required")
	}

	r.Deadline = strings.TrimSpace(r.Deadline)
	if r.Deadline == "" {
		return derrors.New(derrors.CodeValidation, "deadline is required")
	}
	deadline, err := time.Parse("2006-01-02", r.Deadline)
	if err != nil {
		return derrors.New(derrors.CodeValidation, "deadline must be a YYYY-MM-DD date")
	}
	r.parsedDeadline = deadline

	return nil
}

// ToInput converts the request into the service's create input.
func (r *CreateListingRequest) ToInput() service.CreateInput {
	return service.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		AmountCents: r.AmountCents,
		Deadline:    r.parsedDeadline,
		Scope:       models.Scope(strings.ToUpper(strings.TrimSpace(r.Scope))),
		RegionUF:    r.RegionUF,
		RegionCity:  r.RegionCity,
		Lat:         r.Lat,
		Lng:         r.Lng,
		RadiusKM:    r.RadiusKM,
	}
}
