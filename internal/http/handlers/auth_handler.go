// Auth HTTP handlers: signup with an emailed code, login, logout and the
// current-user endpoint. Login returns the session token in the body and
// also sets it as an HttpOnly cookie for browser clients.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/http/middleware"
)

// SignupRequest starts a registration.
type SignupRequest struct {
	Email           string `json:"email"            binding:"required" example:"jane@example.com"`
	Password        string `json:"password"         binding:"required" example:"correct-horse"`
	ConfirmPassword string `json:"confirm_password" binding:"required" example:"correct-horse"`
}

// VerifySignupRequest completes a registration with the mailed code.
type VerifySignupRequest struct {
	Email string `json:"email" binding:"required" example:"jane@example.com"`
	Code  string `json:"code"  binding:"required" example:"492817"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse"`
}

// SignupResponse acknowledges a started signup.
type SignupResponse struct {
	Status string `json:"status" example:"verification_sent"`
}

// Signup godoc
// @ID          signup
// @Summary     Start a signup
// @Description Validates the password and mails a 6-digit verification code.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SignupRequest  true  "Signup"
// @Success     202  {object}  handlers.SignupResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "User exists"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, password and confirm_password required")
		return
	}
	if err := h.auth.Signup(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusAccepted, SignupResponse{Status: "verification_sent"})
}

// VerifySignup godoc
// @ID          verifySignup
// @Summary     Complete a signup
// @Description People listed in the directory become approvers; everybody else is a user.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.VerifySignupRequest  true  "Code"
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Code expired or incorrect"
// @Failure     409  {object}  handlers.ErrorResponse  "User exists"
// @Router      /auth/signup/verify [post]
func (h *Handlers) VerifySignup(c *gin.Context) {
	var req VerifySignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and code required")
		return
	}
	u, err := h.auth.VerifySignup(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Returns a session token and sets it as the HttpOnly "token" cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
// @Success     200  {object}  services.Session
// @Header      200  {string}  Set-Cookie  "token=...; HttpOnly; SameSite=Lax"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	h.setSessionCookie(c, s.Token, maxAge)
	ok(c, http.StatusOK, s)
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the session cookie. Bearer tokens simply expire.
// @Tags        Auth
// @Success     204  {string}  string "No Content"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.auth.Me(c.Request.Context(), actor(c))
	if err != nil {
		// ErrInvalidCredentials when the token outlived its account.
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

func (h *Handlers) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.opts.CookieSecure, true)
}
