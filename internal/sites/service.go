// Package sites manages workspaces and authorizes access to them by
// membership.
package sites

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
)

// ErrSiteNotFound covers a missing site, a malformed id and a caller
// who is not a member alike.
var ErrSiteNotFound = apperr.NotFound("Site not found")

// Store is the subset of the site repository the service needs.
type Store interface {
	Create(ctx context.Context, site *models.Site, ownerID int64) error
	GetForMember(ctx context.Context, siteID string, userID int64) (*models.Site, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.Site, error)
}

type Service struct {
	store Store
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

// Authorize returns the site when callerID is a member of it.
func (s *Service) Authorize(ctx context.Context, callerID int64, siteID string) (*models.Site, error) {
	if _, err := uuid.Parse(siteID); err != nil {
		return nil, ErrSiteNotFound
	}

	site, err := s.store.GetForMember(ctx, siteID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, apperr.Internal("Could not load site", err)
	}
	return site, nil
}

// List returns the caller's sites. An empty list is not an error.
func (s *Service) List(ctx context.Context, callerID int64) ([]*models.Site, error) {
	sites, err := s.store.ListForUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("Could not list sites", err)
	}
	return sites, nil
}

// Create makes a new site with the caller as owner.
func (s *Service) Create(ctx context.Context, callerID int64, name *string) (*models.Site, error) {
	if name == nil {
		return nil, apperr.BadRequest("name not given")
	}

	site := &models.Site{ID: s.newID(), Name: *name}
	if err := s.store.Create(ctx, site, callerID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Internal("Could not generate a unique ID, try again later.", err)
		}
		return nil, apperr.Internal("Could not create site", err)
	}
	return site, nil
}
