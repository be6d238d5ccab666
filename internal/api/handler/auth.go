package handler

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/api/middleware"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/oauth"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/pkg/ws"
	"github.com/qs3c/ats_resume_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
	hub         *ws.Hub
	frontendURL string
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService, hub *ws.Hub, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		hub:         hub,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Register 用户注册
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			response.Conflict(c, response.CodeEmailExists, err.Error())
			return
		}
		writeServiceError(c, err)
		return
	}

	response.Created(c, resp)
}

// Login 用户登录
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error(), nil)
			return
		}
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// Logout 注销当前令牌
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.AuthRequired(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		writeServiceError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.DisconnectUser(claims.UserID)
	}

	response.SuccessWithMessage(c, "Logged out", nil)
}

// Me 当前用户信息及今日用量
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateMe 更新资料
// PUT /api/auth/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, profile)
}

// GithubAuth 返回 GitHub 授权地址
// GET /api/auth/github?redirect=xxx
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	redirect := c.Query("redirect")
	if redirect == "" {
		redirect = h.frontendURL + "/auth/callback"
	}

	authURL, err := h.authService.GetGithubAuthURL(c.Request.Context(), redirect)
	if err != nil {
		if errors.Is(err, service.ErrOAuthDisabled) {
			response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServerError, err.Error(), nil)
			return
		}
		writeServiceError(c, err)
		return
	}

	response.Success(c, &dto.GithubLoginResponse{URL: authURL})
}

// GithubCallback GitHub 回调，登录后带 token 跳回前端
// GET /api/auth/github/callback?code=xxx&state=xxx
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ValidationError(c, "Missing code or state")
		return
	}

	resp, redirect, err := h.authService.GithubCallback(c.Request.Context(), code, state)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			response.ValidationError(c, err.Error())
			return
		}
		log.Printf("GitHub login failed: %v", err)
		c.Redirect(http.StatusFound, withQuery(h.frontendURL+"/auth/callback", "error", "github_login_failed"))
		return
	}

	if redirect == "" {
		redirect = h.frontendURL + "/auth/callback"
	}
	c.Redirect(http.StatusFound, withQuery(redirect, "token", resp.Token))
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
