package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserIDKey = "user_id"
	sessionEmailKey  = "email"
	principalCtxKey  = "__principal"
)

// Login 将登录用户写入 cookie 会话
func Login(c *gin.Context, principal *Principal) error {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, principal.UserID)
	session.Set(sessionEmailKey, principal.Email)
	return session.Save()
}

// Logout 清空会话并返回登出前的用户
func Logout(c *gin.Context) (*Principal, error) {
	principal, _ := CurrentPrincipal(c)

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return principal, session.Save()
}

// CurrentPrincipal 从会话中读取当前用户
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	if cached, exists := c.Get(principalCtxKey); exists {
		if principal, ok := cached.(*Principal); ok {
			return principal, true
		}
	}

	session := sessions.Default(c)
	userID, _ := session.Get(sessionUserIDKey).(string)
	if userID == "" {
		return nil, false
	}
	email, _ := session.Get(sessionEmailKey).(string)

	principal := &Principal{UserID: userID, Email: email}
	c.Set(principalCtxKey, principal)
	return principal, true
}

// AuthRequired 拒绝未登录的请求
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		c.Next()
	}
}
