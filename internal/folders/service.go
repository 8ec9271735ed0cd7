// Package folders serves the per-site folder hierarchy.
package folders

import (
	"context"
	"errors"

	"github.com/lithammer/shortuuid/v4"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
)

var (
	ErrFolderNotFound = apperr.NotFound("Folder not found")
	ErrParentNotFound = apperr.NotFound("Parent folder not found")
	ErrNoFolders      = apperr.NotFound("No folders found")
)

// Store is the subset of the folder repository the service needs.
type Store interface {
	Create(ctx context.Context, folder *models.Folder) error
	Get(ctx context.Context, siteID, id string) (*models.Folder, error)
	ListRoots(ctx context.Context, siteID string) ([]*models.Folder, error)
	ListBySite(ctx context.Context, siteID string) ([]*models.Folder, error)
}

// FileCounter reports active files per folder.
type FileCounter interface {
	CountByFolder(ctx context.Context, siteID string) (map[string]int, error)
}

type Service struct {
	store    Store
	files    FileCounter
	maxDepth int
	newID    func() string
}

// NewService creates the folder service. maxDepth bounds serialized
// trees; 0 means unlimited.
func NewService(store Store, files FileCounter, maxDepth int) *Service {
	return &Service{
		store:    store,
		files:    files,
		maxDepth: maxDepth,
		newID:    shortuuid.New,
	}
}

// ListRootFolders returns the site's top-level folders with their
// subtrees.
func (s *Service) ListRootFolders(ctx context.Context, siteID string) ([]*models.FolderNode, error) {
	roots, err := s.store.ListRoots(ctx, siteID)
	if err != nil {
		return nil, apperr.Internal("Could not list folders", err)
	}
	if len(roots) == 0 {
		return nil, ErrNoFolders
	}

	tree, err := s.loadTree(ctx, siteID)
	if err != nil {
		return nil, err
	}

	nodes := make([]*models.FolderNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, tree.build(root, s.maxDepth))
	}
	return nodes, nil
}

// GetFolder returns one folder of the site with its subtree.
func (s *Service) GetFolder(ctx context.Context, siteID, folderID string) (*models.FolderNode, error) {
	folder, err := s.Lookup(ctx, siteID, folderID)
	if err != nil {
		return nil, err
	}

	tree, err := s.loadTree(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return tree.build(folder, s.maxDepth), nil
}

// Lookup loads a folder by id scoped to siteID without its subtree.
func (s *Service) Lookup(ctx context.Context, siteID, folderID string) (*models.Folder, error) {
	folder, err := s.store.Get(ctx, siteID, folderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, apperr.Internal("Could not load folder", err)
	}
	return folder, nil
}

// CreateFolder adds a folder at the site root, or below parentID when
// it is set. The parent must belong to the same site.
func (s *Service) CreateFolder(ctx context.Context, siteID string, name *string, parentID *string) (*models.Folder, error) {
	if name == nil {
		return nil, apperr.BadRequest("name not given")
	}

	if parentID != nil {
		if _, err := s.store.Get(ctx, siteID, *parentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, apperr.Internal("Could not load parent folder", err)
		}
	}

	folder := &models.Folder{
		ID:       s.newID(),
		Name:     *name,
		ParentID: parentID,
		SiteID:   siteID,
	}
	if err := s.store.Create(ctx, folder); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Internal("Could not generate a unique ID, try again later.", err)
		}
		return nil, apperr.Internal("Could not create folder", err)
	}
	return folder, nil
}

func (s *Service) loadTree(ctx context.Context, siteID string) (*tree, error) {
	all, err := s.store.ListBySite(ctx, siteID)
	if err != nil {
		return nil, apperr.Internal("Could not list folders", err)
	}
	counts, err := s.files.CountByFolder(ctx, siteID)
	if err != nil {
		return nil, apperr.Internal("Could not count files", err)
	}
	return newTree(all, counts), nil
}
