package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/SergeiKhy/linkshort/internal/config"
	"github.com/SergeiKhy/linkshort/internal/handler"
	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/SergeiKhy/linkshort/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	linkRepo *mocks.MockLinkRepository
	clicks   *mocks.MockClickRecorder
}

func newTestServer(t *testing.T, admin config.AdminConfig, opts handler.RouterOptions) *testServer {
	t.Helper()
	logger := zap.NewNop()
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	clicks := mocks.NewMockClickRecorder()

	router := handler.NewRouter(
		service.NewLinkService(linkRepo, cacheRepo, nil, time.Hour, logger),
		service.NewRedirectService(linkRepo, cacheRepo, clicks, time.Hour, logger),
		service.NewAnalyticsService(linkRepo),
		service.NewAuthService(admin, logger),
		opts,
		logger,
	)
	return &testServer{router: router, linkRepo: linkRepo, clicks: clicks}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) shorten(t *testing.T, body map[string]any) models.Link {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/shorten", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.Link](t, w)
}

func TestShorten(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	link := s.shorten(t, map[string]any{
		"url":         "https://example.com/page",
		"title":       "Example",
		"description": "A page",
	})

	assert.Len(t, link.Short, 6)
	assert.Equal(t, "https://example.com/page", link.URL)
	assert.Equal(t, "Example", *link.Title)
	assert.Zero(t, link.Clicks)
}

func TestShorten_CustomShort(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	link := s.shorten(t, map[string]any{"url": "https://example.com", "customShort": "MyCode"})
	assert.Equal(t, "MyCode", link.Short)

	w := s.do(t, http.MethodPost, "/api/shorten", map[string]any{"url": "https://other.example", "customShort": "MyCode"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "short_taken", decode[handler.ErrorResponse](t, w).Error)
	assert.Equal(t, 1, s.linkRepo.Count())
}

func TestShorten_BadInput(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed json", `{"url":`, "invalid_request"},
		{"missing url", map[string]any{"title": "x"}, "invalid_request"},
		{"not a url", map[string]any{"url": "not a url"}, "invalid_url"},
		{"bad custom short", map[string]any{"url": "https://example.com", "customShort": "a b"}, "invalid_short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/shorten", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode[handler.ErrorResponse](t, w).Error)
		})
	}
	assert.Zero(t, s.linkRepo.Count())
}

func TestShorten_StoreFailureHidesDetails(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})
	s.linkRepo.Err = errors.New("pq: password authentication failed for user secret")

	w := s.do(t, http.MethodPost, "/api/shorten", map[string]any{"url": "https://example.com"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestRedirect(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})
	link := s.shorten(t, map[string]any{"url": "https://example.com/target"})

	w := s.do(t, http.MethodGet, "/"+link.Short, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))
	assert.Equal(t, []string{link.Short}, s.clicks.Codes())
}

func TestRedirect_PlaceholderPaths(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	for _, path := range []string{"/", "/favicon.ico", "/unknown"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "URL Shortener API - Ready!", w.Body.String(), path)
	}
	assert.Empty(t, s.clicks.Codes())
}

func TestUnknownAPIRoute(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	w := s.do(t, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handler.ErrorResponse{Error: "not_found", Message: "API endpoint not found"}, decode[handler.ErrorResponse](t, w))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{AllowedOrigins: "https://admin.example"})

	w := s.do(t, http.MethodOptions, "/api/links/1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	w := s.do(t, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"linkshort"}`, w.Body.String())
}

func TestListLinks(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	w := s.do(t, http.MethodGet, "/api/links", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for i := 0; i < 3; i++ {
		s.shorten(t, map[string]any{"url": "https://example.com/" + strconv.Itoa(i)})
	}

	w = s.do(t, http.MethodGet, "/api/links?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Link](t, w), 2)

	for _, limit := range []string{"0", "101", "abc"} {
		w = s.do(t, http.MethodGet, "/api/links?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestUpdateLink(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})
	link := s.shorten(t, map[string]any{"url": "https://old.example"})
	other := s.shorten(t, map[string]any{"url": "https://other.example", "customShort": "other"})
	path := "/api/links/" + strconv.FormatInt(link.ID, 10)

	w := s.do(t, http.MethodPut, path, map[string]any{
		"url":   "https://new.example",
		"title": "New",
		"short": "fresh",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Link](t, w)
	assert.Equal(t, "fresh", updated.Short)
	assert.Equal(t, "https://new.example", updated.URL)

	w = s.do(t, http.MethodGet, "/api/stats/fresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New", *decode[models.Link](t, w).Title)

	w = s.do(t, http.MethodPut, path, map[string]any{"url": "https://new.example", "short": other.Short})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/api/links/9999", map[string]any{"url": "https://new.example"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/links/abc", map[string]any{"url": "https://new.example"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path, map[string]any{"url": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteLink(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})
	link := s.shorten(t, map[string]any{"url": "https://example.com"})
	path := "/api/links/" + strconv.FormatInt(link.ID, 10)

	w := s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Link deleted successfully"}`, w.Body.String())

	w = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/"+link.Short, nil)
	assert.Equal(t, http.StatusOK, w.Code, "удалённый код отдаёт заглушку")
}

func TestGetStats(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})
	link := s.shorten(t, map[string]any{"url": "https://example.com"})
	require.NoError(t, s.linkRepo.IncrementClicks(context.Background(), link.Short))

	w := s.do(t, http.MethodGet, "/api/stats/"+link.Short, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.Link](t, w).Clicks)

	w = s.do(t, http.MethodGet, "/api/stats/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	w := s.do(t, http.MethodGet, "/api/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"stats": {"total_links": 0, "total_clicks": 0, "avg_clicks": 0, "max_clicks": 0},
		"recentLinks": [],
		"topLinks": []
	}`, w.Body.String())

	link := s.shorten(t, map[string]any{"url": "https://example.com"})
	s.linkRepo.SetClicks(link.Short, 4)

	w = s.do(t, http.MethodGet, "/api/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.Summary](t, w)
	assert.EqualValues(t, 1, summary.Stats.TotalLinks)
	assert.EqualValues(t, 4, summary.Stats.MaxClicks)
	require.Len(t, summary.TopLinks, 1)
	assert.Equal(t, link.Short, summary.TopLinks[0].Short)
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{Password: "hunter2"}, handler.RouterOptions{})

	w := s.do(t, http.MethodPost, "/api/admin/login", map[string]any{"password": "hunter2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	for _, body := range []any{map[string]any{"password": "wrong"}, map[string]any{}, `garbage`} {
		w = s.do(t, http.MethodPost, "/api/admin/login", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, decode[handler.LoginResponse](t, w).Success)
	}
}

// TestAdminLogin_NoSecretConfigured без серверного секрета войти нельзя никаким паролем
func TestAdminLogin_NoSecretConfigured(t *testing.T) {
	s := newTestServer(t, config.AdminConfig{}, handler.RouterOptions{})

	w := s.do(t, http.MethodPost, "/api/admin/login", map[string]any{"password": "admin123"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t,
		config.AdminConfig{Password: "hunter2", TokenSecret: "key", TokenTTL: time.Hour},
		handler.RouterOptions{RequireAdminToken: true},
	)

	w := s.do(t, http.MethodGet, "/api/links", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/analytics", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Публичные маршруты не требуют токена
	link := s.shorten(t, map[string]any{"url": "https://example.com"})
	w = s.do(t, http.MethodGet, "/"+link.Short, nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/login", map[string]any{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[handler.LoginResponse](t, w)
	require.NotEmpty(t, login.Token)

	w = s.do(t, http.MethodGet, "/api/links", nil, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/links/"+strconv.FormatInt(link.ID, 10), nil, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}
