package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/logging"
)

// Context keys for user data
const (
	ContextKeyUser   = "auth_user"
	ContextKeyUserID = "auth_user_id"
)

const (
	MsgCredentialsInvalid = "could not validate credentials"
	MsgAdminRequired      = "operation not permitted, requires admin role"
)

// UserResolver turns tokens and session ids into users.
type UserResolver interface {
	UserFromToken(token string) (*entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
}

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	users          UserResolver
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware. sessionManager may be nil.
func NewMiddleware(users UserResolver, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		users:          users,
		sessionManager: sessionManager,
	}
}

// Handler identifies the caller without rejecting anyone. Route groups
// add RequireAuth or RequireAdmin where a user is mandatory.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// A presented bearer token decides on its own; a bad one does not fall back to the cookie.
		if token, ok := bearerToken(c); ok {
			if user, err := m.users.UserFromToken(token); err == nil {
				m.setUserContext(c, user)
			}
			c.Next()
			return
		}

		if user := m.trySessionAuth(c); user != nil {
			m.setUserContext(c, user)
		}
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// HasBearerToken reports whether the request carries a bearer Authorization header.
func HasBearerToken(c *gin.Context) bool {
	_, ok := bearerToken(c)
	return ok
}

// trySessionAuth attempts to authenticate using session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.users.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

// setUserContext stores user information in the Gin context.
func (m *Middleware) setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(logging.UserIDKey, user.ID)
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": MsgCredentialsInvalid,
	})
}

// RequireAuth rejects requests without an authenticated user.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c)
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": MsgAdminRequired,
			})
			return
		}
		c.Next()
	}
}

// Helper functions to extract auth data from Gin context

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}
