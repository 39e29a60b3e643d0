package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	chatService "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
)

func newTestRouter() http.Handler {
	store := blueprint.NewMemoryStore(blueprint.Seed())
	svc := chatService.NewService(store, nil, chatService.Options{SpeechMode: config.SpeechModeOff}, zerolog.Nop())
	return NewRouter(store, svc, Options{Logger: zerolog.Nop()})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/sessions", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutesMounted(t *testing.T) {
	router := newTestRouter()
	for _, path := range []string{"/api/blueprints", "/api/palette", "/api/sessions"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
