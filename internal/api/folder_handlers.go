package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/folders"
	"github.com/docudir-api/internal/middleware"
	"github.com/docudir-api/internal/models"
)

func handleListRootFolders(folderService *folders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodes, err := folderService.ListRootFolders(c.Request.Context(), middleware.SiteFrom(c).ID)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, nodes)
	}
}

func handleGetFolder(folderService *folders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		node, err := folderService.GetFolder(c.Request.Context(), middleware.SiteFrom(c).ID, c.Param("folder"))
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, node)
	}
}

// handleCreateFolder serves both /folders and /folders/:folder; the
// latter creates the folder below :folder.
func handleCreateFolder(folderService *folders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindName(c)
		if !ok {
			return
		}

		folder, err := folderService.CreateFolder(c.Request.Context(), middleware.SiteFrom(c).ID, req.Name, optionalParam(c, "folder"))
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.CreatedResponse{
			Message: "New folder created",
			ID:      folder.ID,
			Name:    folder.Name,
		})
	}
}
