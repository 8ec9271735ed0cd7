// Package storage persists file content ("blobs") under per-site
// prefixes. Live blobs are named {site}/{id}{ext}; blobs of soft-deleted
// files live under {site}/.trash/. Nothing here touches metadata.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docudir-api/internal/config"
	"github.com/docudir-api/internal/models"
)

// 错误定义
var (
	ErrNotFound    = Error("blob not found")
	ErrInvalidName = Error("invalid blob name")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// Info describes a stored blob.
type Info struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Object is an open blob. It is seekable so it can back range requests.
type Object interface {
	io.ReadSeekCloser
}

// Store is implemented by LocalStore and MinIOStore.
type Store interface {
	// Write stores r as the live blob name. size may be -1 when unknown.
	Write(ctx context.Context, siteID, name string, r io.Reader, size int64, contentType string) error
	// Open returns the live blob name, or ErrNotFound.
	Open(ctx context.Context, siteID, name string) (Object, *Info, error)
	// Rename moves a live blob to a new live name.
	Rename(ctx context.Context, siteID, oldName, newName string) error
	// MoveToTrash relocates a live blob into the site's trash.
	MoveToTrash(ctx context.Context, siteID, name string) error
	Exists(ctx context.Context, siteID, name string) (bool, error)
	InTrash(ctx context.Context, siteID, name string) (bool, error)
	// List returns the names of the site's live blobs.
	List(ctx context.Context, siteID string) ([]string, error)
}

// New creates the Store selected by storage.type.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Type {
	case "local":
		if cfg.Storage.Local.RootPath == "" {
			return nil, fmt.Errorf("local storage requires storage.local.root_path to be set")
		}
		return NewLocalStore(cfg.Storage.Local.RootPath)
	case "minio":
		return NewMinIOStore(ctx, cfg.Storage.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// ValidName rejects anything that could escape the site prefix.
func ValidName(s string) error {
	if s == "" || s == "." || s == ".." || s == models.TrashDir ||
		strings.ContainsAny(s, `/\`) || strings.HasPrefix(s, ".tmp-") {
		return ErrInvalidName
	}
	return nil
}

func validNames(names ...string) error {
	for _, n := range names {
		if err := ValidName(n); err != nil {
			return fmt.Errorf("%w: %q", err, n)
		}
	}
	return nil
}
