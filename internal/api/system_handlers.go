package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    AppName,
			"version": AppVersion,
		})
	}
}

// handleHealth 健康检查, including a database ping.
func handleHealth(db ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.CheckReady(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"time":   time.Now().Unix(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	}
}
