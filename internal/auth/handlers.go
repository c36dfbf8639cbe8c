package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/logging"
)

// AuditLogger receives authentication and account events.
type AuditLogger interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
	LogAccount(userID uint, action, description string)
}

// Recorder receives counters for registrations and login outcomes.
type Recorder interface {
	RecordRegistration()
	RecordLogin(result string)
}

// Login outcomes reported to the Recorder.
const (
	LoginResultSuccess     = "success"
	LoginResultFailure     = "failure"
	LoginResultLocked      = "locked"
	LoginResultRateLimited = "rate_limited"
)

// RegisterRequest is the JSON body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	throttle       *LoginThrottle
	audit          AuditLogger
	recorder       Recorder
}

// NewAuthController creates a new authentication controller. sessionManager,
// audit and recorder may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, audit AuditLogger, recorder Recorder) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		throttle:       NewLoginThrottle(cfg.IPLoginFailures, cfg.RateLimitWindow),
		audit:          audit,
		recorder:       recorder,
	}
}

// RegisterRoutes registers authentication routes under /auth.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/auth")
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/csrf", ac.CSRFToken)
}

// Stop ends the login throttle's background sweep.
func (ac *AuthController) Stop() {
	ac.throttle.Stop()
}

// Register creates a regular user account.
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	user, err := ac.service.Register(req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists),
			errors.Is(err, ErrNameRequired),
			errors.Is(err, ErrNameTooLong),
			errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrEmailInvalid),
			errors.Is(err, ErrPasswordRequired),
			errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logging.WithError(err).Error("registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	if ac.recorder != nil {
		ac.recorder.RecordRegistration()
	}
	if ac.audit != nil {
		ac.audit.LogAccount(user.ID, "register", "Registered "+user.Email)
	}

	c.JSON(http.StatusCreated, user)
}

// Login exchanges form credentials for an access token and opens a cookie session.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	clientIP := c.ClientIP()

	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if wait := ac.throttle.Check(clientIP); wait > 0 {
		ac.record(LoginResultRateLimited)
		c.Header("Retry-After", retryAfterSeconds(wait))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"retry_after": retryAfterSeconds(wait),
		})
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountLocked):
			ac.throttle.Fail(clientIP)
			result := LoginResultFailure
			if errors.Is(err, ErrAccountLocked) {
				result = LoginResultLocked
			}
			ac.record(result)
			ac.logAuth(0, "login", c, false)

			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			logging.WithError(err).Error("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	token, err := ac.service.IssueToken(user)
	if err != nil {
		logging.WithError(err).Error("failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			logging.WithError(err).Warn("failed to create session")
		}
	}

	ac.record(LoginResultSuccess)
	ac.logAuth(user.ID, "login", c, true)

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: TokenType})
}

// Logout destroys the cookie session. Bearer tokens expire on their own.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			logging.WithError(err).Warn("failed to destroy session")
		}
	}
	if user := CurrentUser(c); user != nil {
		ac.logAuth(user.ID, "logout", c, true)
	}
	c.Status(http.StatusNoContent)
}

// CSRFToken returns the token cookie-session clients must echo in X-CSRF-Token.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c)})
}

func (ac *AuthController) record(result string) {
	if ac.recorder != nil {
		ac.recorder.RecordLogin(result)
	}
}

func (ac *AuthController) logAuth(userID uint, action string, c *gin.Context, success bool) {
	if ac.audit != nil {
		ac.audit.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
	}
}
