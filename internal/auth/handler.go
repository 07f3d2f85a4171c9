package auth

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
	"github.com/inkwell-funnel/backend/pkg/utils"
)

const minPasswordLen = 8

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// validateCredentials checks email and password shape before any
// persistence call is made, so malformed input never reaches the network.
func validateCredentials(email, password string) string {
	if _, err := mail.ParseAddress(email); err != nil {
		return "invalid email address"
	}
	if len(password) < minPasswordLen {
		return "password must be at least 8 characters"
	}
	return ""
}

// Signup handles POST /auth/signup. New accounts are members; admins are
// provisioned out of band.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if msg := validateCredentials(req.Email, req.Password); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	exists, err := h.repo.ExistsByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Upstream(c, "could not create account, please retry")
		return
	}
	if exists {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, models.RoleMember)
	if err != nil {
		h.logger.Error("create profile failed", zap.Error(err))
		response.Upstream(c, "could not create account, please retry")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		response.Upstream(c, "could not sign in, please retry")
		return
	}
	if user == nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}
