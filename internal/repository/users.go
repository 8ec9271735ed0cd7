package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docudir-api/internal/database"
	"github.com/docudir-api/internal/models"
)

var userColumns = []string{"id", "email", "name", "password", "role", "status", "created_at"}

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and sets its generated ID. A taken email
// returns ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.DefaultRole
	}
	if user.Status == "" {
		user.Status = models.DefaultStatus
	}
	user.CreatedAt = time.Now().UTC()

	err := database.NewInsertBuilder("users").
		Columns("email", "name", "password", "role", "status", "created_at").
		Values(user.Email, user.Name, user.PasswordHash, user.Role, user.Status, user.CreatedAt).
		Returning("id").
		QueryRow(ctx, r.db).
		Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := database.NewSelectBuilder("users", userColumns...).
		Where("email = ?", email).
		QueryRow(ctx, r.db)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := database.NewSelectBuilder("users", userColumns...).
		Where("id = ?", id).
		QueryRow(ctx, r.db)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
