package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/auth"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
	"github.com/lalith-99/sitetrack/internal/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves signup and login, the only routes that don't need a
// token.
type AuthHandler struct {
	actorRepo repository.ActorRepository
	ownerRepo repository.OwnerRepository
	sessions  *session.Manager
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(
	actorRepo repository.ActorRepository,
	ownerRepo repository.OwnerRepository,
	sessions *session.Manager,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		actorRepo: actorRepo,
		ownerRepo: ownerRepo,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	OwnerName   string `json:"owner_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token   string           `json:"token"`
	Actor   *models.Actor    `json:"actor"`
	Session *session.Session `json:"session"`
}

// Signup handles POST /v1/auth/signup. It creates the owner account and
// its first actor, then opens a verified session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.actorRepo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("failed to check existing actor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	owner, err := h.ownerRepo.Create(c.Request.Context(), req.OwnerName)
	if err != nil {
		h.logger.Error("failed to create owner", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	actor, err := h.actorRepo.Create(c.Request.Context(), owner.ID, email, req.DisplayName, string(hash))
	if err != nil {
		h.logger.Error("failed to create actor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	h.respond(c, http.StatusCreated, actor, "signup failed")
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, err := h.actorRepo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("failed to find actor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// Same answer for unknown email and wrong password.
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	h.respond(c, http.StatusOK, actor, "login failed")
}

func (h *AuthHandler) respond(c *gin.Context, status int, actor *models.Actor, failure string) {
	token, err := auth.GenerateToken(actor.ID, actor.OwnerID, actor.Email, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
		return
	}
	s := h.sessions.Start(c.Request.Context(), actor)
	c.JSON(status, authResponse{Token: token, Actor: actor, Session: s})
}
