package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/docudir-api/internal/models"
)

// LocalStore keeps blobs on the local filesystem:
//
//	<root>/
//	  <site_id>/
//	    <file_id><ext>
//	    .trash/
//	      <file_id><ext>
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) livePath(siteID, name string) string {
	return filepath.Join(s.root, siteID, name)
}

func (s *LocalStore) trashPath(siteID, name string) string {
	return filepath.Join(s.root, siteID, models.TrashDir, name)
}

// Write stores the blob with a temp file and an atomic rename, creating
// the site directory on first use.
func (s *LocalStore) Write(ctx context.Context, siteID, name string, r io.Reader, size int64, _ string) error {
	if err := validNames(siteID, name); err != nil {
		return err
	}

	dir := filepath.Join(s.root, siteID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create site directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, contextReader{ctx: ctx, r: r})
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, s.livePath(siteID, name)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (s *LocalStore) Open(_ context.Context, siteID, name string) (Object, *Info, error) {
	if err := validNames(siteID, name); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.livePath(siteID, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open blob: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	return f, &Info{
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
	}, nil
}

func (s *LocalStore) Rename(_ context.Context, siteID, oldName, newName string) error {
	if err := validNames(siteID, oldName, newName); err != nil {
		return err
	}
	return move(s.livePath(siteID, oldName), s.livePath(siteID, newName))
}

func (s *LocalStore) MoveToTrash(_ context.Context, siteID, name string) error {
	if err := validNames(siteID, name); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(s.root, siteID, models.TrashDir), 0755); err != nil {
		return fmt.Errorf("failed to create trash directory: %w", err)
	}
	return move(s.livePath(siteID, name), s.trashPath(siteID, name))
}

func (s *LocalStore) Exists(_ context.Context, siteID, name string) (bool, error) {
	if err := validNames(siteID, name); err != nil {
		return false, err
	}
	return exists(s.livePath(siteID, name))
}

func (s *LocalStore) InTrash(_ context.Context, siteID, name string) (bool, error) {
	if err := validNames(siteID, name); err != nil {
		return false, err
	}
	return exists(s.trashPath(siteID, name))
}

// List skips the trash directory and in-flight temp files.
func (s *LocalStore) List(_ context.Context, siteID string) ([]string, error) {
	if err := validNames(siteID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, siteID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list site directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func move(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to move blob: %w", err)
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
