package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"shopmap/internal/config"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
)

const sessionStateKey = "oauth_state"

// UserUpserter records a signed-in user.
type UserUpserter interface {
	UpsertUser(ctx context.Context, user *models.User) error
}

// AuthHandler handles OIDC authentication flows.
type AuthHandler struct {
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	users        UserUpserter
	admins       *config.YAMLConfig
	cfg          *config.Config
}

// NewAuthHandler creates a new auth handler with OIDC configuration. admins
// may be nil.
func NewAuthHandler(ctx context.Context, cfg *config.Config, users UserUpserter, admins *config.YAMLConfig) (*AuthHandler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})

	return &AuthHandler{
		provider:     provider,
		oauth2Config: oauth2Config,
		verifier:     verifier,
		users:        users,
		admins:       admins,
		cfg:          cfg,
	}, nil
}

// Login initiates the OIDC login flow.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	state, err := generateState()
	if err != nil {
		return err
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set(sessionStateKey, state)

	return c.Redirect().To(h.oauth2Config.AuthCodeURL(state))
}

// Callback handles the OIDC callback after authentication.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	// Verify state
	savedState, _ := sess.Get(sessionStateKey).(string)
	if savedState == "" || savedState != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete(sessionStateKey)

	oauth2Token, err := h.oauth2Config.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		log.Warn().Err(err).Msg("oidc code exchange failed")
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing id_token")
	}

	idToken, err := h.verifier.Verify(c.Context(), rawIDToken)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id_token")
	}

	claims := make(map[string]any)
	if err := idToken.Claims(&claims); err != nil {
		return err
	}

	// Some providers only put minimal claims in the ID token.
	userInfo, err := h.provider.UserInfo(c.Context(), oauth2.StaticTokenSource(oauth2Token))
	if err == nil {
		var extra map[string]any
		if err := userInfo.Claims(&extra); err == nil {
			for k, v := range extra {
				claims[k] = v
			}
		}
	} else {
		log.Warn().Err(err).Msg("failed to fetch userinfo")
	}

	if h.cfg.IsDev() {
		log.Debug().Interface("claims", claims).Msg("oidc claims received")
	}

	user := userFromClaims(claims, h.admins)
	if user.Sub == "" {
		return fiber.NewError(fiber.StatusBadRequest, "id_token has no subject")
	}
	if err := h.users.UpsertUser(c.Context(), user); err != nil {
		return err
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("role", user.Role).
		Msg("user signed in")

	sess.Set(middleware.SessionUserKey, user.Sub)

	return c.Redirect().To(popRedirect(sess))
}

// Logout clears the user session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		if err := sess.Destroy(); err != nil {
			log.Error().Err(err).Msg("failed to destroy session")
		}
	}
	return c.Redirect().To("/")
}

// userFromClaims builds the user to upsert. Listed admins get the admin role;
// everyone else leaves Role empty so an existing role is kept and new users
// become owners.
func userFromClaims(claims map[string]any, admins *config.YAMLConfig) *models.User {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	user := &models.User{
		Sub:     sub,
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	if admins.IsAdmin(email, sub) {
		user.Role = models.RoleAdmin
	}
	return user
}

// popRedirect returns the page that sent the user to login. Only local paths
// are honoured.
func popRedirect(sess *session.Middleware) string {
	target, _ := sess.Get(middleware.SessionRedirectKey).(string)
	sess.Delete(middleware.SessionRedirectKey)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
