package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docudir-api/internal/database"
	"github.com/docudir-api/internal/models"
)

var fileColumns = []string{"id", "name", "ext", "mimetype", "size", "site_id", "folder_id", "deleted", "created_at"}

type FileRepository struct {
	db *database.DB
}

func NewFileRepository(db *database.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	file.CreatedAt = time.Now().UTC()

	_, err := database.NewInsertBuilder("files").
		Columns(fileColumns...).
		Values(file.ID, file.Name, file.Ext, file.Mimetype, file.Size,
			file.SiteID, file.FolderID, file.Deleted, file.CreatedAt).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("insert file: %w", translate(err))
	}
	return nil
}

// Get loads an active file. folderID is part of the filter: nil selects
// files at the site root only.
func (r *FileRepository) Get(ctx context.Context, siteID string, folderID *string, id string) (*models.File, error) {
	row := database.NewSelectBuilder("files", fileColumns...).
		Where("id = ?", id).
		Where("site_id = ?", siteID).
		WhereNullable("folder_id", folderID).
		Where("deleted = ?", false).
		QueryRow(ctx, r.db)
	return scanFile(row)
}

// List returns the active files directly inside folderID, or at the
// site root when folderID is nil.
func (r *FileRepository) List(ctx context.Context, siteID string, folderID *string) ([]*models.File, error) {
	return r.list(ctx, database.NewSelectBuilder("files", fileColumns...).
		Where("site_id = ?", siteID).
		WhereNullable("folder_id", folderID).
		Where("deleted = ?", false).
		OrderBy("name", "id"))
}

// ListAll returns every file record of the site, deleted ones included.
func (r *FileRepository) ListAll(ctx context.Context, siteID string) ([]*models.File, error) {
	return r.list(ctx, database.NewSelectBuilder("files", fileColumns...).
		Where("site_id = ?", siteID).
		OrderBy("id"))
}

// CountByFolder maps folder id to its number of active files.
func (r *FileRepository) CountByFolder(ctx context.Context, siteID string) (map[string]int, error) {
	rows, err := database.NewSelectBuilder("files", "folder_id", "COUNT(*)").
		Where("site_id = ?", siteID).
		Where("folder_id IS NOT NULL").
		Where("deleted = ?", false).
		GroupBy("folder_id").
		Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			folderID string
			count    int
		)
		if err := rows.Scan(&folderID, &count); err != nil {
			return nil, err
		}
		counts[folderID] = count
	}
	return counts, rows.Err()
}

// Rename updates the display name and extension of an active file.
func (r *FileRepository) Rename(ctx context.Context, siteID, id, name, ext string) error {
	res, err := database.NewUpdateBuilder("files").
		Set("name", name).
		Set("ext", ext).
		Where("id = ?", id).
		Where("site_id = ?", siteID).
		Where("deleted = ?", false).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return expectAffected(res)
}

// SoftDelete marks an active file as deleted.
func (r *FileRepository) SoftDelete(ctx context.Context, siteID, id string) error {
	res, err := database.NewUpdateBuilder("files").
		Set("deleted", true).
		Where("id = ?", id).
		Where("site_id = ?", siteID).
		Where("deleted = ?", false).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return expectAffected(res)
}

func (r *FileRepository) list(ctx context.Context, b *database.SelectBuilder) ([]*models.File, error) {
	rows, err := b.Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func scanFile(row rowScanner) (*models.File, error) {
	var (
		f        models.File
		folderID sql.NullString
	)
	err := row.Scan(&f.ID, &f.Name, &f.Ext, &f.Mimetype, &f.Size,
		&f.SiteID, &folderID, &f.Deleted, &f.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	f.FolderID = nullableString(folderID)
	return &f, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Find loads a file by id within a site regardless of folder or deleted
// state. Only the reconciliation sweep uses it.
func (r *FileRepository) Find(ctx context.Context, siteID, id string) (*models.File, error) {
	row := database.NewSelectBuilder("files", fileColumns...).
		Where("id = ?", id).
		Where("site_id = ?", siteID).
		QueryRow(ctx, r.db)
	return scanFile(row)
}
