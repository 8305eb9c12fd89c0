package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
	"shopmap/internal/db"
	"shopmap/internal/models"
)

// Session keys shared with the auth handler.
const (
	SessionUserKey     = "user_sub"
	SessionRedirectKey = "redirect_after_login"
)

const localsUserKey = "user"

// UserLookup resolves the OIDC subject stored in the session.
type UserLookup interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	users UserLookup
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// GetUser returns the signed-in user or nil.
func GetUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUserKey).(*models.User)
	return user
}

// SetUser attaches the signed-in user to the request.
func SetUser(c fiber.Ctx, user *models.User) {
	c.Locals(localsUserKey, user)
}

// GetActor returns the acting identity, Anonymous without a session.
func GetActor(c fiber.Ctx) models.Actor {
	return GetUser(c).Actor()
}

// loadUser resolves the session user. A session whose subject has no users
// row is destroyed and the request continues as anonymous. Lookup failures
// are returned.
func (m *AuthMiddleware) loadUser(c fiber.Ctx) (*models.User, error) {
	sess := session.FromContext(c)
	if sess == nil {
		return nil, nil
	}

	sub, _ := sess.Get(SessionUserKey).(string)
	if sub == "" {
		return nil, nil
	}

	user, err := m.users.GetUserBySub(c.Context(), sub)
	if errors.Is(err, db.ErrUserNotFound) {
		log.Warn().Str("sub", sub).Msg("session user has no profile, signing out")
		if err := sess.Destroy(); err != nil {
			log.Error().Err(err).Msg("failed to destroy session")
		}
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, err, "failed to load user")
	}

	SetUser(c, user)
	return user, nil
}

// RequireAuth ensures the user is authenticated, redirecting to /login if not.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user, err := m.loadUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		if sess := session.FromContext(c); sess != nil {
			sess.Set(SessionRedirectKey, c.OriginalURL())
		}
		return c.Redirect().To("/login")
	}
	return c.Next()
}

// RequireAdmin is RequireAuth plus the admin role.
func (m *AuthMiddleware) RequireAdmin(c fiber.Ctx) error {
	user, err := m.loadUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return c.Redirect().To("/login")
	}
	if !user.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Admins only")
	}
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if _, err := m.loadUser(c); err != nil {
		log.Error().Err(err).Msg("continuing without user")
	}
	return c.Next()
}

// APIRequireAuth rejects anonymous API calls with UNAUTHORIZED.
func (m *AuthMiddleware) APIRequireAuth(c fiber.Ctx) error {
	user, err := m.loadUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.New(apperr.CodeUnauthorized, "sign in to continue")
	}
	return c.Next()
}
