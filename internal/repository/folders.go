package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docudir-api/internal/database"
	"github.com/docudir-api/internal/models"
)

var folderColumns = []string{"id", "name", "parent_id", "site_id", "created_at"}

type FolderRepository struct {
	db *database.DB
}

func NewFolderRepository(db *database.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	folder.CreatedAt = time.Now().UTC()

	_, err := database.NewInsertBuilder("folders").
		Columns(folderColumns...).
		Values(folder.ID, folder.Name, folder.ParentID, folder.SiteID, folder.CreatedAt).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("insert folder: %w", translate(err))
	}
	return nil
}

// Get loads a folder by id within a site.
func (r *FolderRepository) Get(ctx context.Context, siteID, id string) (*models.Folder, error) {
	row := database.NewSelectBuilder("folders", folderColumns...).
		Where("id = ?", id).
		Where("site_id = ?", siteID).
		QueryRow(ctx, r.db)
	return scanFolder(row)
}

// ListRoots returns the site's folders without a parent.
func (r *FolderRepository) ListRoots(ctx context.Context, siteID string) ([]*models.Folder, error) {
	return r.list(ctx, database.NewSelectBuilder("folders", folderColumns...).
		Where("site_id = ?", siteID).
		WhereNullable("parent_id", nil).
		OrderBy("name", "id"))
}

// ListBySite returns every folder of the site.
func (r *FolderRepository) ListBySite(ctx context.Context, siteID string) ([]*models.Folder, error) {
	return r.list(ctx, database.NewSelectBuilder("folders", folderColumns...).
		Where("site_id = ?", siteID).
		OrderBy("name", "id"))
}

func (r *FolderRepository) list(ctx context.Context, b *database.SelectBuilder) ([]*models.Folder, error) {
	rows, err := b.Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*models.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func scanFolder(row rowScanner) (*models.Folder, error) {
	var (
		f        models.Folder
		parentID sql.NullString
	)
	if err := row.Scan(&f.ID, &f.Name, &parentID, &f.SiteID, &f.CreatedAt); err != nil {
		return nil, translate(err)
	}
	f.ParentID = nullableString(parentID)
	return &f, nil
}
