package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmap/internal/apperr"
	"shopmap/internal/db"
	"shopmap/internal/models"
)

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) GetUserBySub(_ context.Context, sub string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[sub]; ok {
		return u, nil
	}
	return nil, db.ErrUserNotFound
}

func newTestApp(users *fakeUsers) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			if ae := apperr.As(err); ae != nil {
				return c.Status(ae.HTTPStatus()).SendString(string(ae.Code()))
			}
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).SendString(fe.Message)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})

	sessionMiddleware, _ := session.NewWithStore(session.Config{
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	app.Use(sessionMiddleware)

	auth := NewAuthMiddleware(users)

	app.Get("/test-login/:sub", func(c fiber.Ctx) error {
		session.FromContext(c).Set(SessionUserKey, c.Params("sub"))
		return c.SendString("ok")
	})
	app.Get("/whoami", auth.OptionalAuth, func(c fiber.Ctx) error {
		return c.SendString(GetActor(c).Role)
	})
	app.Get("/private", auth.RequireAuth, func(c fiber.Ctx) error {
		return c.SendString(GetUser(c).Name)
	})
	app.Get("/admin", auth.RequireAdmin, func(c fiber.Ctx) error {
		return c.SendString("admin area")
	})
	app.Get("/api/private", auth.APIRequireAuth, func(c fiber.Ctx) error {
		return c.SendString("api ok")
	})
	return app
}

type client struct {
	t       *testing.T
	app     *fiber.App
	cookies []*http.Cookie
}

func (cl *client) get(path string) (*http.Response, string) {
	cl.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	resp, err := cl.app.Test(req)
	require.NoError(cl.t, err)
	if set := resp.Cookies(); len(set) > 0 {
		cl.cookies = set
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func testUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{
		"owner-sub": {ID: uuid.New(), Sub: "owner-sub", Name: "Olive Owner", Role: models.RoleOwner},
		"admin-sub": {ID: uuid.New(), Sub: "admin-sub", Name: "Ada Admin", Role: models.RoleAdmin},
	}}
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	cl := &client{t: t, app: newTestApp(testUsers())}

	resp, _ := cl.get("/private")
	assert.GreaterOrEqual(t, resp.StatusCode, 300)
	assert.Less(t, resp.StatusCode, 400)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRequireAuth_LoadsUser(t *testing.T) {
	cl := &client{t: t, app: newTestApp(testUsers())}

	cl.get("/test-login/owner-sub")
	resp, body := cl.get("/private")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Olive Owner", body)

	_, body = cl.get("/whoami")
	assert.Equal(t, models.RoleOwner, body)
}

func TestMissingProfileFailsClosed(t *testing.T) {
	cl := &client{t: t, app: newTestApp(testUsers())}

	cl.get("/test-login/ghost-sub")
	resp, _ := cl.get("/private")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := cl.get("/whoami")
	assert.Equal(t, models.RoleAnonymous, body)
}

func TestRequireAuth_LookupFailure(t *testing.T) {
	users := testUsers()
	cl := &client{t: t, app: newTestApp(users)}

	cl.get("/test-login/owner-sub")
	users.err = errors.New("connection refused")

	resp, body := cl.get("/private")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, string(apperr.CodePersistence), body)

	// Optional routes still render for anonymous visitors.
	resp, body = cl.get("/whoami")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.RoleAnonymous, body)
}

func TestRequireAdmin(t *testing.T) {
	t.Run("owner is forbidden", func(t *testing.T) {
		cl := &client{t: t, app: newTestApp(testUsers())}
		cl.get("/test-login/owner-sub")
		resp, _ := cl.get("/admin")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin is allowed", func(t *testing.T) {
		cl := &client{t: t, app: newTestApp(testUsers())}
		cl.get("/test-login/admin-sub")
		resp, body := cl.get("/admin")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "admin area", body)
	})
}

func TestAPIRequireAuth(t *testing.T) {
	cl := &client{t: t, app: newTestApp(testUsers())}

	resp, body := cl.get("/api/private")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(apperr.CodeUnauthorized), body)

	cl.get("/test-login/admin-sub")
	resp, body = cl.get("/api/private")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "api ok", body)
}

func TestGetActor_Anonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(GetActor(c).Role)
	})

	resp, err := app.Test(httptestRequest("/"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, models.RoleAnonymous, string(body))
}

func httptestRequest(path string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	return req
}
