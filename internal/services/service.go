// Package services exposes the shop's bookable services and repair tracking.
package services

import (
	"fmt"
	"strings"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
)

// Link points a client at a bookable service.
type Link struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RepairStatus is the tracking answer for a repair reference.
type RepairStatus struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// RepairPending is the only status repairs report today.
const RepairPending = "Pending"

const maxReferenceLength = 64

// Service answers the services page.
type Service struct {
	links []Link
}

// NewService builds the link list from configuration. Links with no URL are
// left out.
func NewService(cfg config.ServicesConfig) *Service {
	candidates := []Link{
		{ID: "internet-cafe", Title: "Book Internet Cafe", URL: cfg.InternetCafeURL},
		{ID: "phone-repair", Title: "Book Phone Repair", URL: cfg.PhoneRepairURL},
		{ID: "print-upload", Title: "Upload Documents to Print", URL: cfg.PrintUploadURL},
	}
	links := make([]Link, 0, len(candidates))
	for _, link := range candidates {
		link.URL = strings.TrimSpace(link.URL)
		if link.URL == "" {
			continue
		}
		links = append(links, link)
	}
	return &Service{links: links}
}

// Links returns the configured booking links in display order.
func (s *Service) Links() []Link {
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}

// TrackRepair reports the status of a repair reference.
func (s *Service) TrackRepair(ref string) (*RepairStatus, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please enter a repair reference number")
	}
	if len(ref) > maxReferenceLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "repair reference number is too long")
	}
	return &RepairStatus{
		Reference: ref,
		Status:    RepairPending,
		Message:   fmt.Sprintf("Tracking repair ID: %s (%s)", ref, RepairPending),
	}, nil
}
