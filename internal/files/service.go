// Package files sequences file operations across the metadata store and
// the blob store. The two stores share no transaction, so each operation
// applies its steps in a fixed order:
//
//	upload: create metadata, then write blob
//	rename: move blob, then update metadata
//	delete: flag metadata deleted, then move blob to trash
package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
	"github.com/docudir-api/internal/storage"
)

var (
	ErrFileNotFound    = apperr.NotFound("File not found")
	ErrNoFiles         = apperr.NotFound("No files found")
	ErrContentNotFound = apperr.NotFound("File content not found")
	ErrInvalidFilename = apperr.BadRequest("Invalid file name")
)

// MetadataStore is the subset of the file repository the service needs.
type MetadataStore interface {
	Create(ctx context.Context, file *models.File) error
	Get(ctx context.Context, siteID string, folderID *string, id string) (*models.File, error)
	Find(ctx context.Context, siteID, id string) (*models.File, error)
	List(ctx context.Context, siteID string, folderID *string) ([]*models.File, error)
	ListAll(ctx context.Context, siteID string) ([]*models.File, error)
	Rename(ctx context.Context, siteID, id, name, ext string) error
	SoftDelete(ctx context.Context, siteID, id string) error
}

// FolderResolver checks that a folder belongs to a site.
type FolderResolver interface {
	Lookup(ctx context.Context, siteID, folderID string) (*models.Folder, error)
}

// SiteLister enumerates sites for reconciliation.
type SiteLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Upload is one multipart file part. A nil *Upload means the "file"
// field was absent.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.Reader
}

type Service struct {
	meta    MetadataStore
	blobs   storage.Store
	folders FolderResolver
	sites   SiteLister
	locks   *KeyedLocker
	logger  logrus.FieldLogger
	newID   func() string
}

func NewService(meta MetadataStore, blobs storage.Store, folders FolderResolver, sites SiteLister, logger logrus.FieldLogger) *Service {
	return &Service{
		meta:    meta,
		blobs:   blobs,
		folders: folders,
		sites:   sites,
		locks:   NewKeyedLocker(),
		logger:  logger,
		newID:   shortuuid.New,
	}
}

// List returns the active files at the site root or in folderID.
func (s *Service) List(ctx context.Context, siteID string, folderID *string) ([]*models.File, error) {
	files, err := s.meta.List(ctx, siteID, folderID)
	if err != nil {
		return nil, apperr.Internal("Could not list files", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

// Get returns an active file in exactly the given folder scope.
func (s *Service) Get(ctx context.Context, siteID string, folderID *string, id string) (*models.File, error) {
	file, err := s.meta.Get(ctx, siteID, folderID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, apperr.Internal("Could not load file", err)
	}
	return file, nil
}

// Open returns the content of an active file.
func (s *Service) Open(ctx context.Context, file *models.File) (storage.Object, *storage.Info, error) {
	obj, info, err := s.blobs.Open(ctx, file.SiteID, file.BlobName())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrContentNotFound
		}
		return nil, nil, apperr.Internal("Could not read file", err)
	}
	return obj, info, nil
}

// Upload stores a new file at the site root or in folderID.
func (s *Service) Upload(ctx context.Context, siteID string, folderID *string, up *Upload) (*models.File, error) {
	if up == nil {
		return nil, apperr.BadRequest("file not given")
	}
	if up.Filename == "" {
		return nil, apperr.BadRequest("file is empty")
	}

	if folderID != nil {
		if _, err := s.folders.Lookup(ctx, siteID, *folderID); err != nil {
			return nil, err
		}
	}

	id, ext := s.newID(), filepath.Ext(up.Filename)
	if err := storage.ValidName(id + ext); err != nil {
		return nil, ErrInvalidFilename
	}

	contentType, content, err := detectContentType(up)
	if err != nil {
		return nil, apperr.Internal("Could not read upload", err)
	}

	file := &models.File{
		ID:       id,
		Name:     up.Filename,
		Ext:      ext,
		Mimetype: contentType,
		Size:     up.Size,
		SiteID:   siteID,
		FolderID: folderID,
	}

	if err := s.meta.Create(ctx, file); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Internal("Could not generate a unique ID, try again later.", err)
		}
		return nil, apperr.Internal("Could not save file", err)
	}

	if err := s.blobs.Write(ctx, siteID, file.BlobName(), content, up.Size, contentType); err != nil {
		s.partialFailure("upload", "write_blob", file, err)
		return nil, apperr.Internal("Could not save file", err)
	}

	return file, nil
}

// Rename changes the display name. A name without an extension keeps
// the stored one; a different extension moves the blob first.
func (s *Service) Rename(ctx context.Context, siteID string, folderID *string, id string, name *string) (*models.File, error) {
	if name == nil {
		return nil, apperr.BadRequest("name not given")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	file, err := s.Get(ctx, siteID, folderID, id)
	if err != nil {
		return nil, err
	}

	newName, newExt := *name, filepath.Ext(*name)
	if newExt == "" {
		newName += file.Ext
		newExt = file.Ext
	}
	if err := storage.ValidName(file.ID + newExt); err != nil {
		return nil, ErrInvalidFilename
	}

	oldBlob := file.BlobName()
	newBlob := file.ID + newExt
	moved := false
	if newExt != file.Ext {
		if err := s.blobs.Rename(ctx, siteID, oldBlob, newBlob); err != nil {
			return nil, apperr.Internal("Could not rename file", err)
		}
		moved = true
	}

	if err := s.meta.Rename(ctx, siteID, file.ID, newName, newExt); err != nil {
		s.partialFailure("rename", "update_metadata", file, err)
		if moved {
			if rbErr := s.blobs.Rename(ctx, siteID, newBlob, oldBlob); rbErr != nil {
				s.partialFailure("rename", "restore_blob", file, rbErr)
			}
		}
		return nil, apperr.Internal("Could not rename file", err)
	}

	file.Name = newName
	file.Ext = newExt
	return file, nil
}

// Delete flags the file deleted and moves its blob into the site trash.
// A failed move leaves the record deleted.
func (s *Service) Delete(ctx context.Context, siteID string, folderID *string, id string) (*models.File, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	file, err := s.Get(ctx, siteID, folderID, id)
	if err != nil {
		return nil, err
	}

	if err := s.meta.SoftDelete(ctx, siteID, file.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, apperr.Internal("Could not delete file", err)
	}
	file.Deleted = true

	if err := s.blobs.MoveToTrash(ctx, siteID, file.BlobName()); err != nil {
		s.partialFailure("delete", "trash_blob", file, err)
		return nil, apperr.Internal("Could not delete file", err)
	}

	return file, nil
}

func (s *Service) partialFailure(operation, step string, file *models.File, err error) {
	partialFailuresTotal.WithLabelValues(operation, step).Inc()
	s.logger.WithFields(logrus.Fields{
		"operation": operation,
		"step":      step,
		"site_id":   file.SiteID,
		"file_id":   file.ID,
	}).WithError(err).Error("file operation left metadata and blob out of sync")
}

const sniffLen = 3072

// detectContentType trusts the part header unless it is missing or
// generic, in which case the leading bytes are sniffed.
func detectContentType(up *Upload) (string, io.Reader, error) {
	ct := strings.TrimSpace(up.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		return ct, up.Content, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]

	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), up.Content), nil
}
