package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Auditor records authentication events. audit.Service satisfies it.
type Auditor interface {
	LogAuth(actor, action, ipAddr, userAgent string, success bool)
}

// AuthController serves the /api/auth endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	auditor        Auditor
	csrfEnabled    bool
}

// NewAuthController creates a new authentication controller. auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, auditor Auditor, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		auditor:     auditor,
		csrfEnabled: cfg.CSRFEnabled,
	}
}

// RegisterRoutes registers authentication routes under group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup, mw *Middleware) {
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/me", mw.RequireAuth(), ac.Me)
	group.POST("/setup", ac.Setup)
	group.GET("/csrf", ac.CSRFToken)
}

// Stop releases the rate limiter's background goroutine.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Email    string `json:"email" form:"email"`
}

type accountResponse struct {
	Success  bool              `json:"success"`
	Username string            `json:"username"`
	Email    string            `json:"email,omitempty"`
	Role     entities.UserRole `json:"role"`
}

func newAccountResponse(a *entities.Account) accountResponse {
	return accountResponse{Success: true, Username: a.Username, Email: a.Email, Role: a.Role}
}

func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, circulation.Validation("invalid request body"))
		return req, false
	}
	return req, true
}

// Register creates a regular account.
func (ac *AuthController) Register(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	account, err := ac.service.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		ac.writeServiceError(c, err)
		return
	}
	ac.audit(c, account.Username, "register", true)
	c.JSON(http.StatusCreated, newAccountResponse(account))
}

// Login checks credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Username); !allowed {
		if retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "too many login attempts, try again later",
		})
		return
	}

	account, err := ac.service.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, circulation.ErrInvalidCredentials) {
			ac.rateLimiter.RecordFailure(clientIP, req.Username)
			ac.audit(c, req.Username, "login", false)
		}
		ac.writeServiceError(c, err)
		return
	}
	ac.rateLimiter.RecordSuccess(clientIP, req.Username)

	if err := ac.sessionManager.CreateSession(c.Request, account); err != nil {
		writeError(c, http.StatusInternalServerError, errors.New("failed to create session"))
		return
	}
	ac.audit(c, account.Username, "login", true)
	c.JSON(http.StatusOK, newAccountResponse(account))
}

// Logout destroys the session. It succeeds without a session too.
func (ac *AuthController) Logout(c *gin.Context) {
	actor := ac.sessionManager.Actor(c.Request)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		writeError(c, http.StatusInternalServerError, errors.New("failed to destroy session"))
		return
	}
	if actor.Authenticated() {
		ac.audit(c, actor.Username, "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the logged-in account.
func (ac *AuthController) Me(c *gin.Context) {
	account, err := ac.service.GetAccount(c.Request.Context(), GetUsername(c))
	if err != nil {
		ac.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(account))
}

// Setup creates the first librarian and logs them in.
func (ac *AuthController) Setup(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	account, err := ac.service.SetupLibrarian(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		ac.writeServiceError(c, err)
		return
	}
	if err := ac.sessionManager.CreateSession(c.Request, account); err != nil {
		writeError(c, http.StatusInternalServerError, errors.New("failed to create session"))
		return
	}
	ac.audit(c, account.Username, "setup", true)
	c.JSON(http.StatusCreated, newAccountResponse(account))
}

// CSRFToken hands out the token for unsafe requests.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled": ac.csrfEnabled,
		"header":  CSRFTokenHeader,
		"token":   GetCSRFToken(c),
	})
}

func (ac *AuthController) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSetupComplete):
		writeError(c, http.StatusConflict, err)
	case errors.Is(err, circulation.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err)
	case errors.Is(err, circulation.ErrValidationFailed):
		writeError(c, http.StatusBadRequest, err)
	case errors.Is(err, circulation.ErrAccountNotFound):
		writeError(c, http.StatusNotFound, err)
	default:
		log.Printf("Internal error (auth): %v", err)
		writeError(c, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (ac *AuthController) audit(c *gin.Context, actor, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(actor, action, c.ClientIP(), c.Request.UserAgent(), success)
}
