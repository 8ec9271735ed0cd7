// Package api exposes the document store over HTTP with gin.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/docudir-api/internal/auth"
	"github.com/docudir-api/internal/files"
	"github.com/docudir-api/internal/folders"
	"github.com/docudir-api/internal/middleware"
	"github.com/docudir-api/internal/sites"
)

const (
	AppName    = "docudir-api"
	AppVersion = "0.1.0"
)

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	CheckReady(ctx context.Context) error
}

// Deps are the services the router dispatches to.
type Deps struct {
	Logger          *logrus.Logger
	Auth            *auth.Service
	Sites           *sites.Service
	Folders         *folders.Service
	Files           *files.Service
	DB              ReadinessChecker
	EnableCORS      bool
	MaxUploadMemory int64
}

// NewRouter 创建路由
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	if d.MaxUploadMemory > 0 {
		router.MaxMultipartMemory = d.MaxUploadMemory
	}

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(d.Logger))
	router.Use(middleware.LoggerMiddleware(d.Logger))
	router.Use(middleware.MetricsMiddleware())

	if d.EnableCORS {
		router.Use(middleware.CORSMiddleware())
	}

	router.GET("/", handleIndex())
	router.GET("/health", handleHealth(d.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAccess := middleware.AuthMiddleware(d.Auth, auth.TokenAccess)
	requireRefresh := middleware.AuthMiddleware(d.Auth, auth.TokenRefresh)

	// Auth routes
	authGroup := router.Group("/v1/auth")
	{
		authGroup.POST("/register", handleRegister(d.Auth))
		authGroup.POST("/login", handleLogin(d.Auth))
		authGroup.POST("/token/refresh", requireRefresh, handleRefresh(d.Auth))
		authGroup.POST("/logout/access", requireAccess, handleLogout(d.Auth, "Access token revoked"))
		authGroup.POST("/logout/refresh", requireRefresh, handleLogout(d.Auth, "Refresh token revoked"))
		authGroup.GET("/me", requireAccess, handleGetMe())
	}

	v1 := router.Group("/v1", requireAccess)
	{
		v1.GET("/sites", handleListSites(d.Sites))
		v1.POST("/sites", handleCreateSite(d.Sites))
	}

	// Every route below is scoped to a site the caller is a member of.
	site := v1.Group("/sites/:site", middleware.RequireSite(d.Sites, "site"))
	{
		site.GET("", handleGetSite())

		site.GET("/folders", handleListRootFolders(d.Folders))
		site.POST("/folders", handleCreateFolder(d.Folders))
		site.GET("/folders/:folder", handleGetFolder(d.Folders))
		site.POST("/folders/:folder", handleCreateFolder(d.Folders))

		site.GET("/folders/:folder/files/:file", handleGetFile(d.Files))
		site.PATCH("/folders/:folder/files/:file", handleRenameFile(d.Files))
		site.DELETE("/folders/:folder/files/:file", handleDeleteFile(d.Files))

		site.GET("/files", handleListFiles(d.Files))
		site.POST("/files", handleUploadFile(d.Files))
		site.GET("/files/folders/:folder", handleListFiles(d.Files))
		site.POST("/files/folders/:folder", handleUploadFile(d.Files))

		site.GET("/files/:file", handleGetFile(d.Files))
		site.PATCH("/files/:file", handleRenameFile(d.Files))
		site.DELETE("/files/:file", handleDeleteFile(d.Files))
	}

	return router
}

// optionalParam returns a pointer to the path parameter, or nil when the
// route has none.
func optionalParam(c *gin.Context, name string) *string {
	v, ok := c.Params.Get(name)
	if !ok {
		return nil
	}
	return &v
}
