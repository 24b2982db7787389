package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"session-auth/internal/domain"
	"session-auth/internal/service"
)

// Handler wires HTTP routes to the authentication service.
type Handler struct {
	auth     service.AuthService
	logger   logrus.FieldLogger
	gatherer prometheus.Gatherer
}

func NewHandler(auth service.AuthService, logger logrus.FieldLogger, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		auth:     auth,
		logger:   logger,
		gatherer: gatherer,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		authed := api.Group("", h.requireToken())
		authed.GET("/profile", h.profile)
		authed.POST("/logout", h.logout)
	}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "request body must be a JSON object"})
		return
	}

	_, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"msg": "user registered, confirmation required (simulated)"})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "request body must be a JSON object"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token.Token})
}

func (h *Handler) profile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "description": "missing identity"})
		return
	}

	profile, err := h.auth.ProfileOf(c.Request.Context(), identity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) logout(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "description": "missing identity"})
		return
	}

	if err := h.auth.Revoke(c.Request.Context(), identity); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "logged out"})
}

// writeError maps service errors to status codes and bodies.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.Is(err, domain.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"msg": "email or username already exists"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid credentials"})
	case errors.Is(err, domain.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token_revoked", "description": "token has been revoked"})
	case errors.Is(err, domain.ErrMalformedSubject):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_token", "description": "token subject is not a user id"})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "description": "token is invalid or expired"})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "user not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.WithError(err).Error("credential store failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "service unavailable"})
	case errors.Is(err, domain.ErrInternal):
		h.logger.WithError(err).Error("internal failure")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	default:
		h.logger.WithError(err).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}
