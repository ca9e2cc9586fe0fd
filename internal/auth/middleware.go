package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Context keys for actor data
const (
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// Middleware resolves the session into a circulation.Actor.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler returns a Gin middleware that stores the session's actor in the
// context. Requests without a session pass through anonymously; the
// engine and RequireAuth decide whether that is acceptable.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, ok := m.trySessionAuth(c); ok {
			c.Set(ContextKeyUsername, actor.Username)
			c.Set(ContextKeyRole, actor.Role)
		}
		c.Next()
	}
}

// trySessionAuth re-reads the account so role changes and deletions take
// effect without waiting for the session to expire.
func (m *Middleware) trySessionAuth(c *gin.Context) (circulation.Actor, bool) {
	if m.sessionManager == nil {
		return circulation.Actor{}, false
	}

	actor := m.sessionManager.Actor(c.Request)
	if !actor.Authenticated() {
		return circulation.Actor{}, false
	}

	account, err := m.service.GetAccount(c.Request.Context(), actor.Username)
	if err != nil {
		return circulation.Actor{}, false
	}
	return circulation.Actor{Username: account.Username, Role: account.Role}, true
}

// RequireAuth aborts with 401 when the request has no actor.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).Authenticated() {
			abortWithError(c, http.StatusUnauthorized, circulation.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 401 for anonymous requests and 403 when the
// actor's role is not listed.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		actor := GetActor(c)
		if !actor.Authenticated() {
			abortWithError(c, http.StatusUnauthorized, circulation.ErrNotAuthenticated)
			return
		}
		if !roleSet[actor.Role] {
			abortWithError(c, http.StatusForbidden, circulation.ErrForbidden)
			return
		}
		c.Next()
	}
}

// GetActor retrieves the request's actor. The zero Actor means no session.
func GetActor(c *gin.Context) circulation.Actor {
	return circulation.Actor{
		Username: GetUsername(c),
		Role:     GetUserRole(c),
	}
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorBody(err))
}

func writeError(c *gin.Context, status int, err error) {
	c.JSON(status, errorBody(err))
}

func errorBody(err error) gin.H {
	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	if kind := circulation.KindOf(err); kind != "" {
		body["code"] = string(kind)
	}
	return body
}
