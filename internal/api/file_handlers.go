package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/files"
	"github.com/docudir-api/internal/middleware"
	"github.com/docudir-api/internal/models"
)

// splitFileParam splits "{id}{ext}" at the first dot. Ids never contain
// a dot, so ext is everything from the first dot on.
func splitFileParam(p string) (id, ext string, hasExt bool) {
	if i := strings.IndexByte(p, '.'); i >= 0 {
		return p[:i], p[i:], true
	}
	return p, "", false
}

func handleListFiles(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := fileService.List(c.Request.Context(), middleware.SiteFrom(c).ID, optionalParam(c, "folder"))
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// handleGetFile returns the file's metadata, or its content when the
// request names the file with exactly its stored extension.
func handleGetFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ext, hasExt := splitFileParam(c.Param("file"))

		file, err := fileService.Get(c.Request.Context(), middleware.SiteFrom(c).ID, optionalParam(c, "folder"), id)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		if !hasExt || ext != file.Ext {
			c.JSON(http.StatusOK, file)
			return
		}

		obj, info, err := fileService.Open(c.Request.Context(), file)
		if err != nil {
			middleware.Abort(c, err)
			return
		}
		defer obj.Close()

		if file.Mimetype != "" {
			c.Header("Content-Type", file.Mimetype)
		}
		http.ServeContent(c.Writer, c.Request, file.BlobName(), info.ModTime, obj)
	}
}

func handleUploadFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		up, closeFn, err := readUpload(c)
		if err != nil {
			middleware.Abort(c, err)
			return
		}
		defer closeFn()

		file, err := fileService.Upload(c.Request.Context(), middleware.SiteFrom(c).ID, optionalParam(c, "folder"), up)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.CreatedResponse{
			Message: "File uploaded",
			ID:      file.ID,
			Name:    file.Name,
		})
	}
}

func handleRenameFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindName(c)
		if !ok {
			return
		}

		id, _, _ := splitFileParam(c.Param("file"))
		file, err := fileService.Rename(c.Request.Context(), middleware.SiteFrom(c).ID, optionalParam(c, "folder"), id, req.Name)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, file)
	}
}

func handleDeleteFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _, _ := splitFileParam(c.Param("file"))
		file, err := fileService.Delete(c.Request.Context(), middleware.SiteFrom(c).ID, optionalParam(c, "folder"), id)
		if err != nil {
			middleware.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "File moved to trash",
			"id":      file.ID,
		})
	}
}

// readUpload extracts the "file" part. It returns a nil Upload when the
// field is absent, and an Upload without a filename when "file" arrived
// as a plain value. The parsed form stores a part with filename="" and a
// part with no filename the same way, so both read as an empty file.
func readUpload(c *gin.Context) (*files.Upload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && c.Request.MultipartForm != nil {
			if _, ok := c.Request.MultipartForm.Value["file"]; ok {
				return &files.Upload{Content: strings.NewReader("")}, noop, nil
			}
		}
		return nil, noop, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, apperr.Internal("Could not read upload", err)
	}

	return &files.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     f,
	}, func() { f.Close() }, nil
}
