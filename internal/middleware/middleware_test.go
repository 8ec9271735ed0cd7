package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/auth"
	"github.com/docudir-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	validateErr error
	resolveErr  error
}

func (f *fakeVerifier) ValidateToken(_ context.Context, raw string, want auth.TokenType) (*auth.Claims, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return &auth.Claims{Type: want, RegisteredClaims: jwt.RegisteredClaims{Subject: raw, ID: "jti"}}, nil
}

func (f *fakeVerifier) ResolveIdentity(_ context.Context, email string) (*models.User, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &models.User{ID: 7, Email: email}, nil
}

type fakeAuthorizer struct {
	calls int
}

func (f *fakeAuthorizer) Authorize(_ context.Context, callerID int64, siteID string) (*models.Site, error) {
	f.calls++
	if callerID == 7 && siteID == "mine" {
		return &models.Site{ID: siteID, Name: "Mine"}, nil
	}
	return nil, apperr.NotFound("Site not found")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(v TokenVerifier) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(v, auth.TokenAccess), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": CurrentUser(c).Email, "id": c.GetInt64(ContextUserID)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		verifier    *fakeVerifier
		wantStatus  int
		wantMessage string
	}{
		{"missing header", "", &fakeVerifier{}, http.StatusUnauthorized, "Missing Authorization Header"},
		{"basic auth", "Basic abc", &fakeVerifier{}, http.StatusUnauthorized, "Missing 'Bearer' type in 'Authorization' header"},
		{"expired", "Bearer x", &fakeVerifier{validateErr: auth.ErrTokenExpired}, http.StatusUnauthorized, "Token has expired"},
		{"revoked", "Bearer x", &fakeVerifier{validateErr: auth.ErrTokenRevoked}, http.StatusUnauthorized, "Token has been revoked"},
		{"unknown user", "Bearer x", &fakeVerifier{resolveErr: auth.ErrIdentityNotFound}, http.StatusUnauthorized, "User not found"},
		{"store failure", "Bearer x", &fakeVerifier{resolveErr: errors.New("db down")}, http.StatusInternalServerError, "Could not verify credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(tt.verifier)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decode(t, w)["message"])
		})
	}
}

func TestAuthMiddleware_SetsUser(t *testing.T) {
	r := newAuthRouter(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer ada@example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, float64(7), body["id"])
}

func TestRequireSite(t *testing.T) {
	authorizer := &fakeAuthorizer{}
	r := gin.New()
	r.GET("/sites/:site", func(c *gin.Context) {
		c.Set(ContextUserID, int64(7))
	}, RequireSite(authorizer, "site"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": SiteFrom(c).Name})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sites/mine", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mine", decode(t, w)["name"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sites/theirs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"error": "Not found", "message": "Site not found"}, decode(t, w))

	assert.Equal(t, 2, authorizer.calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(LoggerMiddleware(logger), RecoveryMiddleware(logger))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", decode(t, w)["error"])
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "request processed")
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	counter, err := httpRequestsTotal.GetMetricWithLabelValues(http.MethodGet, "/items/:id", "200")
	require.NoError(t, err)
	assert.Equal(t, float64(1), promtest.ToFloat64(counter))
}
