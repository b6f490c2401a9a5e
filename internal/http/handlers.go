package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/schedly/auth-service/internal/domain"
	"github.com/schedly/auth-service/internal/log"
	"github.com/schedly/auth-service/internal/oauth"
	"github.com/schedly/auth-service/internal/service"
)

// Pinger is whatever the health check probes (the mongo store in production).
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Auth        *service.AuthService
	Tokens      *service.TokenAuthority
	DB          Pinger
	FrontendURL string
}

func NewHandler(auth *service.AuthService, tokens *service.TokenAuthority, db Pinger, frontendURL string) *Handler {
	return &Handler{Auth: auth, Tokens: tokens, DB: db, FrontendURL: frontendURL}
}

// writeError maps the domain taxonomy onto HTTP statuses. Unauthorized and
// provider-verification failures share one body so the response never hints
// at which check failed.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrProviderVerification):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		log.WithDD(c.Request.Context(), log.L()).Error("request failed",
			zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type signUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp godoc
// @Summary Create a local account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signUpReq true "sign up"
// @Success 201
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/sign_up [post]
func (h *Handler) SignUp(c *gin.Context) {
	var in signUpReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !strings.Contains(in.Email, "@") || len(in.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or weak password"})
		return
	}
	if _, err := h.Auth.SignUp(c.Request.Context(), in.Name, in.Email, in.Password); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
}

// SignIn godoc
// @Summary Exchange local credentials for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signInReq true "sign in"
// @Success 200 {object} tokenResp
// @Failure 401 {object} map[string]string
// @Router /api/auth/sign_in [post]
func (h *Handler) SignIn(c *gin.Context) {
	var in signInReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tok, err := h.Auth.SignIn(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResp{AccessToken: tok})
}

// SignOut godoc
// @Summary Revoke the presented session token
// @Tags auth
// @Security BearerAuth
// @Success 200
// @Failure 401 {object} map[string]string
// @Router /api/auth/sign_out [post]
func (h *Handler) SignOut(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.Auth.SignOut(c.Request.Context(), raw); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// GoogleAuth redirects the browser to Google's consent screen.
func (h *Handler) GoogleAuth(c *gin.Context) {
	dest, err := h.Auth.GoogleLoginURL(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, dest)
}

// GoogleCallback finishes the browser flow and hands the token to the
// frontend via redirect.
func (h *Handler) GoogleCallback(c *gin.Context) {
	res, err := h.Auth.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, successRedirect(h.FrontendURL, res.AccessToken))
}

// successRedirect builds the frontend landing URL. The token goes through the
// query string, so it is escaped regardless of the token alphabet.
func successRedirect(frontendURL, token string) string {
	return frontendURL + "/auth/google/success?token=" + url.QueryEscape(token)
}

type googleTokenReq struct {
	AccessToken string `json:"access_token"`
}

type federatedResp struct {
	AccessToken string         `json:"access_token"`
	User        domain.Profile `json:"user"`
}

// GoogleToken godoc
// @Summary Login with a Google access token (non-browser clients)
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleTokenReq true "google token"
// @Success 200 {object} federatedResp
// @Failure 401 {object} map[string]string
// @Router /api/auth/google/token [post]
func (h *Handler) GoogleToken(c *gin.Context) {
	var in googleTokenReq
	if err := c.ShouldBindJSON(&in); err != nil || in.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Auth.GoogleToken(c.Request.Context(), in.AccessToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, federatedResp{AccessToken: res.AccessToken, User: res.User})
}

type appleTokenReq struct {
	IdentityToken string `json:"identity_token"`
	AppleID       string `json:"apple_id"`
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// AppleToken godoc
// @Summary Login with an Apple identity token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body appleTokenReq true "apple token"
// @Success 200 {object} federatedResp
// @Failure 401 {object} map[string]string
// @Router /api/auth/apple/token [post]
func (h *Handler) AppleToken(c *gin.Context) {
	var in appleTokenReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Auth.AppleLogin(c.Request.Context(), oauth.AppleProof{
		IdentityToken: in.IdentityToken,
		AppleID:       in.AppleID,
		Email:         in.Email,
		GivenName:     in.GivenName,
		FamilyName:    in.FamilyName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, federatedResp{AccessToken: res.AccessToken, User: res.User})
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.Profile
// @Failure 401 {object} map[string]string
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	u, err := h.Auth.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Profile())
}

type deleteAccountReq struct {
	Password string `json:"password"`
}

// DeleteAccount godoc
// @Summary Remove the authenticated account and revoke all its sessions
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Success 204
// @Failure 401 {object} map[string]string
// @Router /api/auth/account [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var in deleteAccountReq
	_ = c.ShouldBindJSON(&in) // body optional for provider-only accounts
	if err := h.Auth.RemoveAccount(c.Request.Context(), userID, in.Password); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.DB.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
