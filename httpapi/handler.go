// Package httpapi mounts the authentication endpoints on a gin router:
// register, login, logout, and refresh. The refresh token travels through a
// CredentialChannel (an httpOnly cookie by default); response bodies only
// ever carry the access token.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fintrackhq/authkit"
)

const identityKey = "httpapi.identity"

// Handler serves the /auth endpoint group.
type Handler struct {
	engine *authkit.Engine
	creds  CredentialChannel
}

// NewHandler wires the engine to a credential channel. A nil channel selects
// the default CookieChannel.
func NewHandler(engine *authkit.Engine, creds CredentialChannel) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("httpapi: engine is required")
	}
	if creds == nil {
		creds = CookieChannel{}
	}
	return &Handler{engine: engine, creds: creds}, nil
}

// Mount registers the auth routes on the router:
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/logout   (requires access token)
//	POST /auth/refresh  (requires refresh credential)
func (h *Handler) Mount(r gin.IRouter) {
	auth := r.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.RequireAuth(), h.logout)
	auth.POST("/refresh", h.refresh)
}

// RequireAuth is the gin middleware guarding protected routes. The validated
// Identity is available through IdentityFrom.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		identity, err := h.engine.ValidateAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the principal stored by RequireAuth.
func IdentityFrom(c *gin.Context) (authkit.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return authkit.Identity{}, false
	}
	identity, ok := value.(authkit.Identity)
	return identity, ok
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ctx := authkit.WithClientIP(c.Request.Context(), c.ClientIP())
	user, err := h.engine.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{
		Message: fmt.Sprintf("User %s created successfully", user.Name),
		User: userResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ctx := authkit.WithClientIP(c.Request.Context(), c.ClientIP())
	pair, err := h.engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.creds.Write(c, pair.RefreshToken, h.engine.RefreshTTL())
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) logout(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	ctx := authkit.WithClientIP(c.Request.Context(), c.ClientIP())
	if err := h.engine.Logout(ctx, identity.UserID); err != nil {
		h.writeError(c, err)
		return
	}

	h.creds.Clear(c)
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) refresh(c *gin.Context) {
	raw, ok := h.creds.Read(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "access denied"})
		return
	}

	ctx := authkit.WithClientIP(c.Request.Context(), c.ClientIP())
	pair, err := h.engine.Refresh(ctx, raw)
	if err != nil {
		// A dead credential is cleared so the client stops replaying it.
		if errors.Is(err, authkit.ErrRefreshInvalid) || errors.Is(err, authkit.ErrRefreshReuse) {
			h.creds.Clear(c)
		}
		h.writeError(c, err)
		return
	}

	h.creds.Write(c, pair.RefreshToken, h.engine.RefreshTTL())
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

// writeError maps engine sentinels to the HTTP taxonomy. Every 401 body is
// deliberately uninformative.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authkit.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, authkit.ErrEmailTaken):
		c.JSON(http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, authkit.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, authkit.ErrTokenInvalid),
		errors.Is(err, authkit.ErrRefreshInvalid),
		errors.Is(err, authkit.ErrRefreshReuse):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "access denied"})
	case errors.Is(err, authkit.ErrLoginRateLimited),
		errors.Is(err, authkit.ErrRefreshRateLimited):
		c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
	case errors.Is(err, authkit.ErrSessionUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	raw := value[len(bearer):]
	return raw, raw != ""
}
