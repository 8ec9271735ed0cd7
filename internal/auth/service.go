// Package auth issues and verifies bearer tokens and resolves the user
// behind a verified token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/docudir-api/internal/config"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/repository"
)

// UserStore is the subset of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationStore persists revoked token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// Options 认证配置
type Options struct {
	Secret            string
	AccessExpiry      time.Duration
	RefreshExpiry     time.Duration
	IdentityCacheTTL  time.Duration
	IdentityCacheSize int
}

// OptionsFromConfig builds Options from the auth config section.
func OptionsFromConfig(cfg config.AuthConfig) Options {
	return Options{
		Secret:            cfg.JWTSecret,
		AccessExpiry:      cfg.AccessExpiry,
		RefreshExpiry:     cfg.RefreshExpiry,
		IdentityCacheTTL:  cfg.IdentityCacheTTL,
		IdentityCacheSize: cfg.IdentityCacheMax,
	}
}

// Service 认证服务
type Service struct {
	users      UserStore
	revoked    RevocationStore
	cache      RevocationCache
	identities *expirable.LRU[string, *models.User]
	opts       Options
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewService 创建认证服务. cache may be nil.
func NewService(users UserStore, revoked RevocationStore, cache RevocationCache, opts Options, logger logrus.FieldLogger) *Service {
	s := &Service{
		users:   users,
		revoked: revoked,
		cache:   cache,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
	if opts.IdentityCacheTTL > 0 {
		size := opts.IdentityCacheSize
		if size <= 0 {
			size = 1024
		}
		s.identities = expirable.NewLRU[string, *models.User](size, nil, opts.IdentityCacheTTL)
	}
	return s
}

// Register creates a user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, req models.UserCreateRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login 验证用户凭据 and returns an access and a refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.UserLoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.issue(user.Email, TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(user.Email, TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &models.UserLoginResponse{
		Message:      "Logged in as " + user.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// Refresh issues a new access token for the subject of a verified
// refresh token.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (string, error) {
	if _, err := s.ResolveIdentity(ctx, claims.Subject); err != nil {
		return "", err
	}
	return s.issue(claims.Subject, TokenAccess)
}

// ResolveIdentity returns the user owning the subject email of a
// verified token.
func (s *Service) ResolveIdentity(ctx context.Context, email string) (*models.User, error) {
	if s.identities != nil {
		if user, ok := s.identities.Get(email); ok {
			return user, nil
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	if s.identities != nil {
		s.identities.Add(email, user)
	}
	return user, nil
}

// Revoke blacklists the token until its natural expiry.
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoked.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return err
	}

	if s.cache != nil {
		ttl := expiresAt.Sub(s.now())
		if ttl > 0 {
			if err := s.cache.MarkRevoked(ctx, claims.ID, ttl); err != nil {
				s.logger.WithError(err).WithField("jti", claims.ID).Warn("revocation cache write failed")
			}
		}
	}
	return nil
}

// PruneRevoked drops revocation entries of tokens that have expired.
func (s *Service) PruneRevoked(ctx context.Context) (int64, error) {
	return s.revoked.PruneExpired(ctx, s.now())
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, jti)
		if err == nil && revoked {
			return true, nil
		}
		if err != nil {
			s.logger.WithError(err).Warn("revocation cache read failed, falling back to database")
		}
	}
	return s.revoked.IsRevoked(ctx, jti)
}

// 错误定义
var (
	ErrInvalidCredentials = Error("Invalid email or password")
	ErrEmailTaken         = Error("Email already registered")
	ErrIdentityNotFound   = Error("User not found")
	ErrInvalidToken       = Error("Invalid token")
	ErrTokenExpired       = Error("Token has expired")
	ErrTokenRevoked       = Error("Token has been revoked")
	ErrWrongTokenType     = Error("Wrong token type")
)

type Error string

func (e Error) Error() string {
	return string(e)
}
