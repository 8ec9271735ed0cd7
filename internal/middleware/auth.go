package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/auth"
	"github.com/docudir-api/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextUser   = "user"
	ContextClaims = "claims"
)

// TokenVerifier verifies bearer tokens and resolves their subject.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, raw string, want auth.TokenType) (*auth.Claims, error)
	ResolveIdentity(ctx context.Context, email string) (*models.User, error)
}

// AuthMiddleware requires a valid, unrevoked bearer token of type want
// whose subject still maps to a user.
func AuthMiddleware(verifier TokenVerifier, want auth.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Abort(c, apperr.Unauthorized("Missing Authorization Header"))
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			Abort(c, apperr.Unauthorized("Missing 'Bearer' type in 'Authorization' header"))
			return
		}

		claims, err := verifier.ValidateToken(c.Request.Context(), token, want)
		if err != nil {
			Abort(c, authError(err))
			return
		}

		user, err := verifier.ResolveIdentity(c.Request.Context(), claims.Subject)
		if err != nil {
			Abort(c, authError(err))
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// authError maps auth sentinels to 401 and everything else to 500.
func authError(err error) error {
	var authErr auth.Error
	if errors.As(err, &authErr) {
		return apperr.Unauthorized(authErr.Error())
	}
	return apperr.Internal("Could not verify credentials", err)
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := c.MustGet(ContextUser).(*models.User)
	return user
}

// CurrentClaims returns the verified token claims.
func CurrentClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.MustGet(ContextClaims).(*auth.Claims)
	return claims
}

// Abort renders err as the JSON error envelope and stops the chain.
// Causes of internal errors are attached to the context for logging.
func Abort(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.Status(), gin.H{
		"error":   string(appErr.Kind),
		"message": appErr.Message,
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type, Last-Modified")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
