package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (h *Handler) Register(c *gin.Context) {
	if currentUserID(c) != 0 {
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "您已登录，如需注册新账号请先退出登录"})
			return
		}
		redirectWithFlash(c, defaultRedirectURL, "info", "您已登录，如需注册新账号请先退出登录")
		return
	}

	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		h.handleServiceError(c, err, "/auth/register")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, user)
		return
	}
	redirectWithFlash(c, loginPath, "success", "注册成功！请登录您的账号")
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
	Next     string `json:"next" form:"next"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err, loginPath)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	opts := sessions.Options{Path: "/", HttpOnly: true}
	if req.Remember {
		opts.MaxAge = rememberMaxAge
	}
	session.Options(opts)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, user)
		return
	}

	next := req.Next
	if next == "" {
		next = c.Query("next")
	}
	if decoded, err := url.QueryUnescape(next); err == nil {
		next = decoded
	}
	// Only same-site relative targets; anything else goes to the default.
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = defaultRedirectURL
	}
	addFlash(c, "success", fmt.Sprintf("欢迎回来，%s！", user.Username))
	c.Redirect(http.StatusFound, next)
}

func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionUserKey)
	session.AddFlash("您已成功退出登录", "info")
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "您已成功退出登录"})
		return
	}
	c.Redirect(http.StatusFound, loginPath)
}
