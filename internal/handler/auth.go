package handler

import (
	"net/http"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
)

// CookieConfig shapes the refresh token cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	auth   *service.AuthService
	cookie CookieConfig
}

func NewAuthHandler(auth *service.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = constants.RefreshCookieName
	}
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = constants.RefreshTokenTTL
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{auth: auth, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	result, err := h.auth.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, ctx, "Registration failed", err)
		return
	}

	logger.InfoWithContext(ctx, "User registered").Uint("user_id", result.User.ID).Log()
	h.writeSession(c, http.StatusCreated, result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}
	h.login(c, "Login", service.PasswordProof{Email: req.Email, Password: req.Password})
}

func (h *AuthHandler) Google(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}
	h.login(c, "GoogleLogin", service.IdentityTokenProof{Token: req.IDToken})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}
	h.login(c, "VerifyOTP", service.OTPProof{Email: req.Email, Code: req.Code})
}

func (h *AuthHandler) Demo(c *gin.Context) {
	var req dto.DemoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}
	h.login(c, "DemoLogin", service.DemoProof{Account: req.Type})
}

func (h *AuthHandler) RequestOTP(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RequestOTP")

	var req dto.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	if err := h.auth.RequestOTP(ctx, req.Email); err != nil {
		respondError(c, ctx, "Could not send code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.ResponseFieldMessage: constants.MsgCodeSent})
}

// Refresh rotates the cookie token. A failed rotation clears the cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Refresh")

	raw, _ := c.Cookie(h.cookie.Name)
	result, err := h.auth.Refresh(ctx, raw)
	if err != nil {
		h.clearCookie(c)
		respondError(c, ctx, "Token refresh failed", err)
		return
	}
	h.writeSession(c, http.StatusOK, result)
}

// Logout always succeeds from the client's point of view.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Logout")

	raw, _ := c.Cookie(h.cookie.Name)
	if err := h.auth.Logout(ctx, raw); err != nil {
		logger.WarnWithContext(ctx, "Refresh token revoke failed").Err(err).Log()
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgLoggedOut))
}

func (h *AuthHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Me")

	user, err := h.auth.Me(ctx, currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not load user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserResponse(user)})
}

func (h *AuthHandler) login(c *gin.Context, function string, proof service.CredentialProof) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", function)

	result, err := h.auth.Login(ctx, proof)
	if err != nil {
		respondError(c, ctx, constants.MsgAuthFailed, err)
		return
	}
	h.writeSession(c, http.StatusOK, result)
}

func (h *AuthHandler) writeSession(c *gin.Context, status int, result *service.AuthResult) {
	h.setCookie(c, result.Session.RefreshToken, int(h.cookie.MaxAge.Seconds()))
	c.JSON(status, dto.AuthResponse{
		AccessToken: result.Session.AccessToken,
		ExpiresAt:   result.Session.AccessExpiresAt,
		User:        dto.NewUserResponse(result.User),
	})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	h.setCookie(c, "", -1)
}
