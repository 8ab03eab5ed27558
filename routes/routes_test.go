package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"doctorAppointment/chatbot"
	"doctorAppointment/controllers"
	"doctorAppointment/fallback"
	"doctorAppointment/utils"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontend = "http://localhost:4000"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := fallback.Load(filepath.Join("..", "data", "appointment_data.json"))
	require.NoError(t, err)

	h := controllers.NewHandler(store, utils.NewAuthenticator("test-secret"), chatbot.NewService(nil, nil), nil, frontend, false)
	return SetupRoutes(mux.NewRouter(), h, frontend)
}

func TestRoutesServeRequests(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/doctors", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/book-appointment", nil)
	req.Header.Set("Origin", frontend)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, frontend, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoginIsRateLimited(t *testing.T) {
	server := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i <= utils.AuthRateLimit.Burst; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.7:5000"
		last = httptest.NewRecorder()
		server.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.JSONEq(t, `{"error":"Too many requests, try again later"}`, last.Body.String())

	// A rotating X-Forwarded-For does not buy a fresh budget.
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.RemoteAddr = "198.51.100.7:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.77")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other clients keep their own budget.
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.RemoteAddr = "198.51.100.8:5000"
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
