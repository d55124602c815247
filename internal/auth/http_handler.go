package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/validate"
	"bookcatalog/internal/user"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, email, password, confirmPassword string) (user.User, error)
}

type HTTPHandler struct {
	service      *Service
	users        Registrar
	cookieSecure bool
}

func NewHTTPHandler(service *Service, users Registrar, cookieSecure bool) *HTTPHandler {
	return &HTTPHandler{service: service, users: users, cookieSecure: cookieSecure}
}

type RegisterReq struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *RegisterReq) normalize() { req.Email = strings.TrimSpace(req.Email) }

func (req *LoginReq) normalize() { req.Email = strings.TrimSpace(req.Email) }

type request interface {
	normalize()
}

// decodeBody decodes and normalizes dst before validating it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst request) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, apperr.KindInvalidInput.String(), "Invalid request body", nil)
		return false
	}
	dst.normalize()
	if details := validate.Struct(dst); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, apperr.KindInvalidInput.String(), "Invalid input", details)
		return false
	}
	return true
}

// Register handles POST /auth/register
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterReq true "Registration request"
// @Success 200 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /auth/register [post]
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.users.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Message(w, "User registered successfully")
}

// Login handles POST /auth/login
// @Summary User login
// @Description Authenticate and receive the access_token cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.MessageResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !decodeBody(w, r, &req) {
		return
	}

	token, expiresAt, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(h.service.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.Message(w, "Successfully logged in")
}
