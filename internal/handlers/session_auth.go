package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/studioflow/class-payroll-service/internal/config"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/services"
)

const (
	sessionName       = "studio-session"
	sessionUserKey    = "session_user"
	sessionValueID    = "teacher_id"
	sessionValueName  = "name"
	sessionValueEmail = "email"
	sessionValueRole  = "role"
)

// SessionAuth keeps the logged-in teacher in a signed cookie
type SessionAuth struct {
	store sessions.Store
}

func NewSessionAuth(cfg config.SessionConfig) *SessionAuth {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionAuth{store: store}
}

// Save writes the user into the session cookie
func (a *SessionAuth) Save(c *gin.Context, user *services.SessionUser) error {
	session, _ := a.store.Get(c.Request, sessionName)
	session.Values[sessionValueID] = user.ID
	session.Values[sessionValueName] = user.Name
	session.Values[sessionValueEmail] = user.Email
	session.Values[sessionValueRole] = string(user.Role)
	return session.Save(c.Request, c.Writer)
}

// Clear expires the session cookie
func (a *SessionAuth) Clear(c *gin.Context) error {
	session, _ := a.store.Get(c.Request, sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}

func (a *SessionAuth) load(c *gin.Context) (*services.SessionUser, bool) {
	session, err := a.store.Get(c.Request, sessionName)
	if err != nil {
		return nil, false
	}
	id, ok := session.Values[sessionValueID].(uint)
	if !ok || id == 0 {
		return nil, false
	}
	role, _ := session.Values[sessionValueRole].(string)
	if !models.UserRole(role).Valid() {
		return nil, false
	}
	name, _ := session.Values[sessionValueName].(string)
	email, _ := session.Values[sessionValueEmail].(string)
	return &services.SessionUser{ID: id, Name: name, Email: email, Role: models.UserRole(role)}, true
}

// RequireAuth rejects requests without a valid session
func (a *SessionAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.load(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
			return
		}
		c.Set(sessionUserKey, user)
		c.Next()
	}
}

// RequireRole must run after RequireAuth
func (a *SessionAuth) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "Insufficient permissions"})
	}
}

func currentUser(c *gin.Context) (*services.SessionUser, bool) {
	v, ok := c.Get(sessionUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*services.SessionUser)
	return user, ok
}
