package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/middleware"
	"github.com/docudir-api/internal/models"
	"github.com/docudir-api/internal/sites"
)

func handleListSites(siteService *sites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := siteService.List(c.Request.Context(), c.GetInt64(middleware.ContextUserID))
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

func handleCreateSite(siteService *sites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindName(c)
		if !ok {
			return
		}

		site, err := siteService.Create(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req.Name)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.CreatedResponse{
			Message: "New site created",
			ID:      site.ID,
			Name:    site.Name,
		})
	}
}

func handleGetSite() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.SiteFrom(c))
	}
}

// bindName decodes a {"name": ...} body. An empty body is treated as a
// body without a name.
func bindName(c *gin.Context) (*models.NameRequest, bool) {
	var req models.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return nil, false
	}
	return &req, true
}
