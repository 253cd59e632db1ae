// internal/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/nepshop-backend/internal/i18n"
	"github.com/javajoker/nepshop-backend/internal/middleware"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
}

func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	if h.secureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie, true)
}

// POST /user/signup
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	avatar, ok := optionalUpload(c)
	if !ok {
		return
	}

	authResponse, err := h.authService.Register(c.Request.Context(), &req, avatar)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	h.setTokenCookie(c, authResponse.AccessToken, authResponse.ExpiresIn)
	utils.MessageResponse(c, http.StatusCreated, i18n.KeyAuthRegisterSuccess, authResponse)
}

// POST /user/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	h.setTokenCookie(c, authResponse.AccessToken, authResponse.ExpiresIn)
	utils.MessageResponse(c, http.StatusOK, i18n.KeyAuthLoginSuccess, authResponse, authResponse.User.Name)
}

// GET /user/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", -1)
	utils.MessageResponse(c, http.StatusOK, i18n.KeyAuthLogoutSuccess, nil)
}

// POST /user/forgotpassword
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req services.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyAuthOTPSent, nil, req.Email)
}

// PUT /user/resetpassword
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyAuthPasswordReset, nil)
}
