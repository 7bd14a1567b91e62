package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if username == "broken" {
		return nil, errors.New("connection refused")
	}
	user, ok := f[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	users := fakeUsers{
		"admin":   {ID: 1, Username: "admin", PasswordHash: hash, Name: "Admin", Role: models.RoleAdmin},
		"manager": {ID: 2, Username: "manager", PasswordHash: hash, Name: "Менеджер", Role: models.RoleUser, DashboardID: "dash-1"},
	}
	return NewService(users, "test-secret", ttl)
}

func TestLogin(t *testing.T) {
	s := newTestService(t, time.Hour)
	ctx := context.Background()

	identity, err := s.Login(ctx, "manager", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 2, Username: "manager", Name: "Менеджер", Role: models.RoleUser, DashboardID: "dash-1"}, identity)

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "manager", "nope"},
		{"unknown user", "ghost", "s3cret"},
		{"empty password", "manager", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Login(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	_, err = s.Login(ctx, "broken", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestService(t, time.Hour)
	identity := Identity{UserID: 2, Username: "manager", Name: "Менеджер", Role: models.RoleUser, DashboardID: "dash-1"}

	token, expires, err := s.IssueToken(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	parsed, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, parsed)
}

func TestParseTokenRejects(t *testing.T) {
	s := newTestService(t, time.Hour)
	identity := Identity{UserID: 1, Username: "admin", Role: models.RoleAdmin}

	expired, _, err := newTestService(t, -time.Hour).IssueToken(identity)
	require.NoError(t, err)
	_, err = s.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, _, err := NewService(fakeUsers{}, "other-secret", time.Hour).IssueToken(identity)
	require.NoError(t, err)
	_, err = s.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCanView(t *testing.T) {
	admin := Identity{Role: models.RoleAdmin}
	user := Identity{Role: models.RoleUser, DashboardID: "dash-1"}
	unassigned := Identity{Role: models.RoleUser}

	assert.True(t, admin.CanView("anything"))
	assert.True(t, user.CanView("dash-1"))
	assert.False(t, user.CanView("dash-2"))
	assert.False(t, unassigned.CanView(""))
}

func newTestRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", s.RequireSession(), func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, identity)
	})
	r.GET("/admin", s.RequireSession(), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/ingest", RequireAPIKey("key-123"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.POST("/closed", RequireAPIKey(""), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRequireSession(t *testing.T) {
	s := newTestService(t, time.Hour)
	r := newTestRouter(s)
	token, _, err := s.IssueToken(Identity{UserID: 2, Username: "manager", Role: models.RoleUser})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		setup  func(req *http.Request)
		status int
	}{
		{"no credentials", func(req *http.Request) {}, http.StatusUnauthorized},
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"session cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }, http.StatusOK},
		{"garbage token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer garbage") }, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	s := newTestService(t, time.Hour)
	r := newTestRouter(s)

	userToken, _, err := s.IssueToken(Identity{UserID: 2, Username: "manager", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, _, err := s.IssueToken(Identity{UserID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAPIKey(t *testing.T) {
	r := newTestRouter(newTestService(t, time.Hour))

	testCases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"valid key", "/ingest", "Bearer key-123", http.StatusCreated},
		{"wrong key", "/ingest", "Bearer key-456", http.StatusUnauthorized},
		{"missing key", "/ingest", "", http.StatusUnauthorized},
		{"ingestion disabled", "/closed", "Bearer key-123", http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
