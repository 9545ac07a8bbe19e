package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/analytics"
	"github.com/Lucasvitorkkx/UTM/internal/auth"
	"github.com/Lucasvitorkkx/UTM/internal/handler"
	"github.com/Lucasvitorkkx/UTM/internal/metrics"
	"github.com/Lucasvitorkkx/UTM/internal/redirect"
	"github.com/Lucasvitorkkx/UTM/internal/repo"
	"github.com/Lucasvitorkkx/UTM/internal/testsupport"
	"github.com/Lucasvitorkkx/UTM/internal/tracking"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	windowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type server struct {
	e       *echo.Echo
	db      *sql.DB
	metrics *metrics.Metrics
}

func newServer(t *testing.T) *server {
	t.Helper()

	instance := testsupport.NewDB(t)
	m := metrics.NewUnregistered()

	links := repo.NewLinksRepo(instance)
	projects := repo.NewProjectsRepo(instance)
	recorder := tracking.NewRecorder(repo.NewClicksRepo(instance), tracking.NewBuilder(), m)
	aggregator := analytics.NewAggregator(repo.NewAnalyticsRepo(instance))
	authenticator := auth.NewAuthenticator(auth.Credentials{Username: "admin", Password: "pw"}, "secret", time.Hour)

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	handler.Routes{
		Auth:        handler.NewAuthHandler(authenticator),
		Links:       handler.NewLinkHandler(links, projects, "https://go.example.com/"),
		Dashboard:   handler.NewDashboardHandler(aggregator, projects),
		Redirect:    handler.NewRedirectHandler(redirect.NewResolver(links, recorder, m), handler.SignalHeaders{Country: "X-Country", City: "X-City"}),
		RequireAuth: auth.NewAuthMiddleware(authenticator),
	}.Register(e)

	return &server{e: e, db: instance, metrics: m}
}

func (s *server) do(t *testing.T, method, target string, body any, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, p := range prepare {
		p(req)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func asAdmin(r *http.Request) { r.SetBasicAuth("admin", "pw") }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *server) createLink(t *testing.T, body map[string]any) handler.LinkResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/links", body, asAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.CreateLinkResponse](t, rec).Link
}

func TestRedirect(t *testing.T) {
	s := newServer(t)
	link := s.createLink(t, map[string]any{
		"url":         "https://shop.example.com/sale?utm_source=old&ref=abc",
		"slug":        "spring",
		"utmSource":   "newsletter",
		"utmCampaign": "spring",
	})
	assert.Equal(t, "https://go.example.com/spring", link.ShortURL)

	rec := s.do(t, http.MethodGet, "/spring", nil, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		r.Header.Set("User-Agent", iPhoneUA)
		r.Header.Set("Referer", "https://news.example.com/")
		r.Header.Set("X-Country", "DE")
		r.Header.Set("X-City", "Berlin")
	})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/sale?utm_source=newsletter&ref=abc&utm_campaign=spring", rec.Header().Get(echo.HeaderLocation))

	var ip, country, city, device, os, referer string
	err := s.db.QueryRow("SELECT ip, country, city, device_type, os, referer FROM clicks").
		Scan(&ip, &country, &city, &device, &os, &referer)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "DE", country)
	assert.Equal(t, "Berlin", city)
	assert.Equal(t, "mobile", device)
	assert.Equal(t, "iOS", os)
	assert.Equal(t, "https://news.example.com/", referer)
}

func TestRedirect_NotFound(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", rec.Body.String())
	assert.Equal(t, 0, testsupport.CountClicks(t, s.db))
}

func TestRedirect_MalformedDestination(t *testing.T) {
	s := newServer(t)
	_, err := repo.NewLinksRepo(s.db).Create(context.Background(), internal.Link{
		ProjectID:      "p1",
		Slug:           "broken",
		DestinationURL: "::not a url",
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/broken", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestAPI_RequiresAuth(t *testing.T) {
	s := newServer(t)

	for _, target := range []string{"/api/links", "/api/dashboard", "/api/dashboard/summary"} {
		rec := s.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON, target)
	}
}

func TestLoginLogout(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = s.do(t, http.MethodGet, "/api/links", nil, func(r *http.Request) { r.AddCookie(cookies[0]) })
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCreateLink_Validation(t *testing.T) {
	s := newServer(t)
	s.createLink(t, map[string]any{"url": "https://example.com", "slug": "taken"})

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"missing url", map[string]any{"slug": "abc"}, http.StatusBadRequest},
		{"relative url", map[string]any{"url": "/path"}, http.StatusBadRequest},
		{"ftp url", map[string]any{"url": "ftp://example.com/file"}, http.StatusBadRequest},
		{"short slug", map[string]any{"url": "https://example.com", "slug": "ab"}, http.StatusBadRequest},
		{"bad characters", map[string]any{"url": "https://example.com", "slug": "a/b/c"}, http.StatusBadRequest},
		{"reserved slug", map[string]any{"url": "https://example.com", "slug": "Metrics"}, http.StatusBadRequest},
		{"duplicate slug", map[string]any{"url": "https://example.org", "slug": "taken"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/links", tt.body, asAdmin)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		})
	}
}

func TestCreateLink_GeneratesSlug(t *testing.T) {
	s := newServer(t)

	link := s.createLink(t, map[string]any{"url": "https://example.com/landing"})

	assert.Len(t, link.Slug, 7)
	assert.Regexp(t, `^[A-Za-z0-9]{7}$`, link.Slug)

	rec := s.do(t, http.MethodGet, "/"+link.Slug, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/landing", rec.Header().Get(echo.HeaderLocation))
}

func TestListLinks_ScopedToProject(t *testing.T) {
	s := newServer(t)
	s.createLink(t, map[string]any{"url": "https://example.com/a", "slug": "first"})
	s.createLink(t, map[string]any{"url": "https://example.com/b", "slug": "second", "utmMedium": "email"})
	testsupport.SeedLink(t, s.db, "someone-else", "foreign")

	rec := s.do(t, http.MethodGet, "/api/links", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	links := decode[handler.ListLinksResponse](t, rec).Links
	require.Len(t, links, 2)
	slugs := []string{links[0].Slug, links[1].Slug}
	assert.ElementsMatch(t, []string{"first", "second"}, slugs)
	assert.NotContains(t, slugs, "foreign")
}

func TestQRCode(t *testing.T) {
	s := newServer(t)
	s.createLink(t, map[string]any{"url": "https://example.com", "slug": "qr-me"})
	testsupport.SeedLink(t, s.db, "someone-else", "foreign")

	rec := s.do(t, http.MethodGet, "/api/links/qr-me/qr", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodGet, "/api/links/foreign/qr", nil, asAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/links/nothing/qr", nil, asAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := newServer(t)
	s.createLink(t, map[string]any{"url": "https://example.com/a", "slug": "alpha"})
	s.createLink(t, map[string]any{"url": "https://example.com/b", "slug": "beta"})

	clicks := []struct{ ip, ua string }{
		{"198.51.100.1", windowsUA},
		{"198.51.100.1", windowsUA},
		{"198.51.100.2", iPhoneUA},
	}
	for _, c := range clicks {
		rec := s.do(t, http.MethodGet, "/alpha", nil, func(r *http.Request) {
			r.Header.Set("X-Real-IP", c.ip)
			r.Header.Set("User-Agent", c.ua)
		})
		require.Equal(t, http.StatusFound, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/dashboard/summary", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalClicks":3,"totalLinks":2,"uniqueVisitors":2}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/dashboard/clicks?days=1", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]internal.DailyCount](t, rec)
	require.Len(t, days, 1)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), days[0].Date)
	assert.EqualValues(t, 3, days[0].Count)

	rec = s.do(t, http.MethodGet, "/api/dashboard/devices?limit=1", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"Windows","value":2}]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/dashboard", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]map[string]any](t, rec)
	assert.Contains(t, body["summary"], "data")
	assert.Contains(t, body["clicksOverTime"], "data")
	assert.Contains(t, body["devices"], "data")
}

func TestDashboard_BadQuery(t *testing.T) {
	s := newServer(t)

	for _, target := range []string{
		"/api/dashboard/clicks?days=0",
		"/api/dashboard/clicks?days=366",
		"/api/dashboard/clicks?days=week",
		"/api/dashboard/devices?limit=51",
		"/api/dashboard?limit=-1",
	} {
		rec := s.do(t, http.MethodGet, target, nil, asAdmin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

type unavailableAggregator struct{}

func (unavailableAggregator) Summary(context.Context, string) (internal.Summary, error) {
	return internal.Summary{}, internal.ErrAnalyticsUnavailable
}

func (unavailableAggregator) ClicksOverTime(context.Context, string, int) ([]internal.DailyCount, error) {
	return nil, internal.ErrAnalyticsUnavailable
}

func (unavailableAggregator) DeviceBreakdown(context.Context, string, int) ([]internal.OSCount, error) {
	return nil, internal.ErrAnalyticsUnavailable
}

func (unavailableAggregator) Dashboard(context.Context, string, int, int) analytics.Dashboard {
	return analytics.Dashboard{
		Summary:        analytics.Widget[internal.Summary]{Data: internal.Summary{TotalClicks: 4}},
		ClicksOverTime: analytics.Widget[[]internal.DailyCount]{Err: internal.ErrAnalyticsUnavailable},
		Devices:        analytics.Widget[[]internal.OSCount]{Err: internal.ErrAnalyticsUnavailable},
	}
}

func TestDashboard_Unavailable(t *testing.T) {
	instance := testsupport.NewDB(t)
	authenticator := auth.NewAuthenticator(auth.Credentials{Username: "admin", Password: "pw"}, "secret", time.Hour)
	dashboard := handler.NewDashboardHandler(unavailableAggregator{}, repo.NewProjectsRepo(instance))

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	api := e.Group("/api", auth.NewAuthMiddleware(authenticator))
	api.GET("/dashboard", dashboard.Dashboard)
	api.GET("/dashboard/summary", dashboard.Summary)
	api.GET("/dashboard/clicks", dashboard.ClicksOverTime)
	api.GET("/dashboard/devices", dashboard.Devices)
	s := &server{e: e, db: instance}

	for _, target := range []string{"/api/dashboard/summary", "/api/dashboard/clicks", "/api/dashboard/devices"} {
		rec := s.do(t, http.MethodGet, target, nil, asAdmin)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.JSONEq(t, `{"error":"data unavailable","retryable":true}`, rec.Body.String(), target)
	}

	rec := s.do(t, http.MethodGet, "/api/dashboard", nil, asAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"summary": {"data": {"totalClicks": 4, "totalLinks": 0, "uniqueVisitors": 0}},
		"clicksOverTime": {"error": "data unavailable"},
		"devices": {"error": "data unavailable"}
	}`, rec.Body.String())
}

func TestUnknownAPIPath(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/nothing/here", nil, asAdmin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON))
}
