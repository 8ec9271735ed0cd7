package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/models"
)

const ContextSite = "site"

// SiteAuthorizer loads a site only for its members.
type SiteAuthorizer interface {
	Authorize(ctx context.Context, callerID int64, siteID string) (*models.Site, error)
}

// RequireSite authorizes the caller against the site named by the path
// parameter param. It must run after AuthMiddleware. Handlers read the
// site back with SiteFrom and scope every nested lookup to its id.
func RequireSite(authorizer SiteAuthorizer, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		site, err := authorizer.Authorize(c.Request.Context(), c.GetInt64(ContextUserID), c.Param(param))
		if err != nil {
			Abort(c, err)
			return
		}

		c.Set(ContextSite, site)
		c.Next()
	}
}

// SiteFrom returns the site set by RequireSite.
func SiteFrom(c *gin.Context) *models.Site {
	site, _ := c.MustGet(ContextSite).(*models.Site)
	return site
}
