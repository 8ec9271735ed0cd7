package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docudir-api/internal/database"
	"github.com/docudir-api/internal/models"
)

var siteColumns = []string{
	"s.id", "s.name", "s.created_at",
	"(SELECT COUNT(*) FROM folders f WHERE f.site_id = s.id) AS folder_count",
}

type SiteRepository struct {
	db *database.DB
}

func NewSiteRepository(db *database.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Create inserts the site and the creator's membership in one
// transaction. An id collision returns ErrDuplicate.
func (r *SiteRepository) Create(ctx context.Context, site *models.Site, ownerID int64) error {
	site.CreatedAt = time.Now().UTC()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		_, err := database.NewInsertBuilder("sites").
			Columns("id", "name", "created_at").
			Values(site.ID, site.Name, site.CreatedAt).
			Exec(ctx, tx)
		if err != nil {
			return fmt.Errorf("insert site: %w", translate(err))
		}

		_, err = database.NewInsertBuilder("user_sites").
			Columns("user_id", "site_id", "permission").
			Values(ownerID, site.ID, models.PermissionOwner).
			Exec(ctx, tx)
		if err != nil {
			return fmt.Errorf("insert membership: %w", translate(err))
		}
		return nil
	})
}

// GetForMember loads the site only when userID is one of its members.
// Existence and membership are checked by the same statement.
func (r *SiteRepository) GetForMember(ctx context.Context, siteID string, userID int64) (*models.Site, error) {
	row := database.NewSelectBuilder("sites s", siteColumns...).
		Join("JOIN", "user_sites us", "us.site_id = s.id").
		Where("s.id = ?", siteID).
		Where("us.user_id = ?", userID).
		QueryRow(ctx, r.db)
	return scanSite(row)
}

// ListForUser returns the sites userID is a member of, ordered by name.
func (r *SiteRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Site, error) {
	rows, err := database.NewSelectBuilder("sites s", siteColumns...).
		Join("JOIN", "user_sites us", "us.site_id = s.id").
		Where("us.user_id = ?", userID).
		OrderBy("s.name", "s.id").
		Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]*models.Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// ListIDs returns every site id. Used by the reconciliation sweep.
func (r *SiteRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := database.NewSelectBuilder("sites", "id").OrderBy("id").Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("list site ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSite(row rowScanner) (*models.Site, error) {
	var s models.Site
	if err := row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.FolderCount); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}
