package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docudir-api/internal/apperr"
	"github.com/docudir-api/internal/auth"
	"github.com/docudir-api/internal/middleware"
	"github.com/docudir-api/internal/models"
)

// handleRegister 处理用户注册
func handleRegister(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Abort(c, apperr.BadRequest("email, name and password (at least 8 characters) are required"))
			return
		}

		user, err := authService.Register(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				middleware.Abort(c, apperr.BadRequest(err.Error()))
				return
			}
			middleware.Abort(c, apperr.Internal("Could not create user", err))
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

// handleLogin 处理用户登录
func handleLogin(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Abort(c, apperr.BadRequest("email and password are required"))
			return
		}

		resp, err := authService.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				middleware.Abort(c, apperr.Unauthorized(err.Error()))
				return
			}
			middleware.Abort(c, apperr.Internal("Could not log in", err))
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func handleRefresh(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := authService.Refresh(c.Request.Context(), middleware.CurrentClaims(c))
		if err != nil {
			if errors.Is(err, auth.ErrIdentityNotFound) {
				middleware.Abort(c, apperr.Unauthorized(err.Error()))
				return
			}
			middleware.Abort(c, apperr.Internal("Could not refresh token", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": token})
	}
}

// handleLogout revokes the token that authenticated the request.
func handleLogout(authService *auth.Service, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authService.Revoke(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
			middleware.Abort(c, apperr.Internal("Could not revoke token", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// handleGetMe 获取当前用户信息
func handleGetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.CurrentUser(c))
	}
}
