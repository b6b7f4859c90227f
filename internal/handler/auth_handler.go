package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plantlog/internal/auth"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 校验邮箱与密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.Email = c.PostForm("email")
		payload.Password = c.PostForm("password")
	}

	principal, err := a.auth.SignIn(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCredentialsRequired):
			respondError(c, http.StatusBadRequest, "请输入邮箱和密码")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
		default:
			log.Printf("[handler] sign in failed: %v", err)
			respondError(c, http.StatusInternalServerError, "登录失败")
		}
		return
	}

	if err := auth.Login(c, principal); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": principalPayload(principal)})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	principal, err := auth.Logout(c)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	a.auth.SignOut(c.Request.Context(), principal)

	c.JSON(http.StatusOK, gin.H{"signed_out": true})
}

// CurrentSession 返回当前登录用户，未登录时 user 为 null
func (a *API) CurrentSession(c *gin.Context) {
	principal, ok := auth.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": principalPayload(principal)})
}

func principalPayload(principal *auth.Principal) gin.H {
	return gin.H{
		"id":    principal.UserID,
		"email": principal.Email,
	}
}
