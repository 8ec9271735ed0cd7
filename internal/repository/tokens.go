package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docudir-api/internal/database"
)

// TokenRepository persists the jti of revoked tokens.
type TokenRepository struct {
	db *database.DB
}

func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke records jti. Revoking the same jti twice is not an error.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := database.NewInsertBuilder("revoked_tokens").
		Columns("jti", "expires_at", "created_at").
		Values(jti, expiresAt.UTC(), time.Now().UTC()).
		Exec(ctx, r.db)
	if err != nil {
		if err = translate(err); err == ErrDuplicate {
			return nil
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := database.NewSelectBuilder("revoked_tokens", "COUNT(*)").
		Where("jti = ?", jti).
		QueryRow(ctx, r.db).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

// PruneExpired removes entries whose token expired before now; such a
// token fails signature validation anyway.
func (r *TokenRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := database.NewDeleteBuilder("revoked_tokens").
		Where("expires_at < ?", now.UTC()).
		Exec(ctx, r.db)
	if err != nil {
		return 0, fmt.Errorf("prune revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
