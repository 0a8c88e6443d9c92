package auth

import (
	"errors"
	"net/http"

	"yesno-backend/logging"
	"yesno-backend/models"

	"github.com/gin-gonic/gin"
)

// Level 路由要求的认证级别
type Level int

const (
	// Optional 有有效令牌时附加主体，否则匿名继续
	Optional Level = iota
	// User 需要已认证用户
	User
	// Admin 需要管理员
	Admin
)

const principalKey = "yesno.principal"

// Require 按级别认证请求；无效令牌在任何级别都返回 401
func (a *Authenticator) Require(level Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			if level == Optional {
				c.Next()
				return
			}
			abort(c, http.StatusUnauthorized, "auth required")
			return
		}

		p, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				abort(c, http.StatusUnauthorized, "invalid session")
				return
			}
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("认证失败")
			abort(c, http.StatusInternalServerError, "internal error")
			return
		}

		if level == Admin && !p.Admin() {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom 读取中间件附加的主体，匿名时返回 nil
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
