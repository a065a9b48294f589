package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureauth/api/internal/config"
	"secureauth/api/internal/models"
	"secureauth/api/internal/security"
	"secureauth/api/internal/session"
)

type fixture struct {
	router   *gin.Engine
	db       pgxmock.PgxPoolIface
	redis    *miniredis.Miniredis
	sessions *session.Manager
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Session: config.SessionConfig{
			CookieName:  "session_id",
			DefaultTTL:  8 * time.Hour,
			RememberTTL: 14 * 24 * time.Hour,
		},
		Hasher: config.HasherConfig{
			Time:          1,
			MemoryKiB:     8 * 1024,
			Threads:       1,
			MaxConcurrent: 4,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	handlerSet := NewHandlerSet(zerolog.Nop(), db, client, cfg)

	router := gin.New()
	handlerSet.Register(router)

	return &fixture{
		router:   router,
		db:       db,
		redis:    mr,
		sessions: session.NewManager(client, cfg.Session),
	}
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Host = "app.example"
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = "app.example"
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func registerValues() url.Values {
	return url.Values{
		"username":         {"alice"},
		"email":            {"alice@x.com"},
		"password":         {"Str0ng-passw0rd!"},
		"confirm_password": {"Str0ng-passw0rd!"},
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session_id" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func expectUserByIDQuery(db pgxmock.PgxPoolIface, user models.User) {
	db.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(user.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "password_hash", "role", "is_active",
			"last_login_at", "created_at", "updated_at",
		}).AddRow(
			user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
			user.IsActive, user.LastLoginAt, time.Now(), time.Now(),
		))
}

func TestRegisterEndToEnd(t *testing.T) {
	f := newFixture(t)

	f.db.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "alice", "alice@x.com", pgxmock.AnyArg(), models.UserRoleUser, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.db.ExpectExec("UPDATE users SET last_login_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := f.postForm(t, "/auth/register", registerValues())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "plain-transport deployment must not mark Secure")
	assert.Zero(t, cookie.MaxAge, "registration session is not remembered")

	// The issued session resolves to the new user on a protected page.
	userID := findSessionUserID(t, f)

	user := models.User{
		ID: userID, Username: "alice", Email: "alice@x.com",
		PasswordHash: []byte("irrelevant"), Role: models.UserRoleUser, IsActive: true,
	}

	expectUserByIDQuery(f.db, user)
	rec = f.get(t, "/dashboard", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")

	// Freshly registered users are plain users: admin surface is 403.
	expectUserByIDQuery(f.db, user)
	rec = f.get(t, "/admin", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestRegisterHonorsSafeNext(t *testing.T) {
	tests := []struct {
		name string
		next string
		want string
	}{
		{"relative target", "/reports", "/reports"},
		{"cross origin falls back", "https://evil.example/x", "/dashboard"},
		{"scheme smuggling falls back", "javascript:alert(1)", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.db.ExpectExec("INSERT INTO users").
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			f.db.ExpectExec("UPDATE users SET last_login_at").
				WithArgs(pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			values := registerValues()
			values.Set("next", tt.next)

			rec := f.postForm(t, "/auth/register", values)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	f := newFixture(t)

	values := registerValues()
	values.Set("password", "weak")
	values.Set("confirm_password", "weak")

	rec := f.postForm(t, "/auth/register", values)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "password")
	assert.Empty(t, rec.Result().Cookies(), "no session on failed registration")
}

func TestRegisterUsernameConflict(t *testing.T) {
	f := newFixture(t)

	f.db.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	rec := f.postForm(t, "/auth/register", registerValues())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username is already taken")
	assert.Empty(t, rec.Result().Cookies())
}

func expectUserByEmailQuery(f *fixture, hash []byte, active bool) {
	f.db.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@x.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "password_hash", "role", "is_active",
			"last_login_at", "created_at", "updated_at",
		}).AddRow(
			"usr_1", "alice", "alice@x.com", hash, models.UserRoleUser,
			active, (*time.Time)(nil), time.Now(), time.Now(),
		))
}

func storedHash(t *testing.T, password string) []byte {
	t.Helper()
	hasher := security.NewHasher(testConfig().Hasher)
	hash, err := hasher.Hash(context.Background(), password)
	require.NoError(t, err)
	return hash
}

func TestLoginSuccessRemembered(t *testing.T) {
	f := newFixture(t)

	expectUserByEmailQuery(f, storedHash(t, "Str0ng-passw0rd!"), true)
	f.db.ExpectExec("UPDATE users SET last_login_at").
		WithArgs("usr_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := f.postForm(t, "/auth/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"Str0ng-passw0rd!"},
		"remember": {"true"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((14 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	rightHash := func(t *testing.T) []byte { return storedHash(t, "Str0ng-passw0rd!") }

	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
		form  url.Values
	}{
		{
			name: "unknown email",
			setup: func(t *testing.T, f *fixture) {
				f.db.ExpectQuery("SELECT (.+) FROM users WHERE email").
					WithArgs("ghost@x.com").
					WillReturnRows(pgxmock.NewRows([]string{
						"id", "username", "email", "password_hash", "role", "is_active",
						"last_login_at", "created_at", "updated_at",
					}))
			},
			form: url.Values{"email": {"ghost@x.com"}, "password": {"Str0ng-passw0rd!"}},
		},
		{
			name: "wrong password",
			setup: func(t *testing.T, f *fixture) {
				expectUserByEmailQuery(f, rightHash(t), true)
			},
			form: url.Values{"email": {"alice@x.com"}, "password": {"Wrong-passw0rd!99"}},
		},
		{
			name: "inactive account with correct password",
			setup: func(t *testing.T, f *fixture) {
				expectUserByEmailQuery(f, rightHash(t), false)
			},
			form: url.Values{"email": {"alice@x.com"}, "password": {"Str0ng-passw0rd!"}},
		},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			rec := f.postForm(t, "/auth/login", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
			bodies = append(bodies, rec.Body.String())
		})
	}

	// Identical responses: nothing distinguishes which check failed.
	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)

	// Register to obtain a live session.
	f.db.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.db.ExpectExec("UPDATE users SET last_login_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := f.postForm(t, "/auth/register", registerValues())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)

	user := models.User{
		ID: findSessionUserID(t, f), Username: "alice", Email: "alice@x.com",
		PasswordHash: []byte("irrelevant"), Role: models.UserRoleUser, IsActive: true,
	}

	expectUserByIDQuery(f.db, user)
	rec = f.postForm(t, "/auth/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	// The cookie is cleared and the session no longer authenticates.
	for _, cleared := range rec.Result().Cookies() {
		if cleared.Name == "session_id" {
			assert.Empty(t, cleared.Value)
			assert.Negative(t, cleared.MaxAge)
		}
	}

	rec = f.get(t, "/dashboard", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutSession(t *testing.T) {
	f := newFixture(t)

	rec := f.postForm(t, "/auth/logout", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func findSessionUserID(t *testing.T, f *fixture) string {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	defer client.Close()

	for _, key := range f.redis.Keys() {
		if strings.HasPrefix(key, "session:") {
			userID, err := client.Get(context.Background(), key).Result()
			require.NoError(t, err)
			return userID
		}
	}
	t.Fatal("no session key in redis")
	return ""
}

func TestHomeRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}
