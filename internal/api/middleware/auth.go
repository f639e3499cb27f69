package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/jwt"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
	RoleKey     = "role"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err == nil {
			setClaims(c, claims)
		}

		c.Next()
	}
}

// RequireAdmin 必须在 Auth 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		if !actor.IsAdmin() {
			response.PermissionError(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UsernameKey, claims.Username)
	c.Set(RoleKey, claims.Role)
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetActor 从上下文构造调用者，旧令牌没有角色时按普通用户处理
func GetActor(c *gin.Context) (service.Actor, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role := c.GetString(RoleKey)
	if role == "" {
		role = model.RoleUser
	}
	return service.Actor{
		UserID:   id,
		Username: c.GetString(UsernameKey),
		Role:     role,
	}, true
}
