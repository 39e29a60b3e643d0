package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	chatmodel "github.com/zhouzirui/motion-soul/backend/internal/model/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/soul"
)

type collaboratorFunc func(ctx context.Context, history []chatmodel.Turn, text string) ai.SoulResponse

func (f collaboratorFunc) Generate(ctx context.Context, history []chatmodel.Turn, text string) ai.SoulResponse {
	return f(ctx, history, text)
}

func setupRouter(c ai.Collaborator) (*chi.Mux, *chatservice.Service) {
	store := blueprint.NewMemoryStore(blueprint.Seed())
	chatSvc := chatservice.NewService(store, func(blueprint.Blueprint) ai.Collaborator { return c },
		chatservice.Options{SpeechMode: config.SpeechModeOff}, zerolog.Nop())

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func joyful() ai.Collaborator {
	return collaboratorFunc(func(context.Context, []chatmodel.Turn, string) ai.SoulResponse {
		return ai.SoulResponse{Emotion: emotion.Joy, ThoughtProcess: "A greeting.", Response: "Hi there!"}
	})
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionDefaultBlueprint(t *testing.T) {
	r, _ := setupRouter(joyful())

	resp := do(r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var snap soul.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, blueprint.DefaultID, snap.Blueprint.ID)
	assert.Equal(t, emotion.Neutral, snap.Emotion)
	assert.Equal(t, "#38bdf8", snap.Color)
	assert.Empty(t, snap.Messages)
}

func TestCreateSessionInvalidBlueprint(t *testing.T) {
	r, _ := setupRouter(joyful())

	resp := do(r, http.MethodPost, "/sessions", map[string]string{"blueprintId": "non-existent"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(joyful())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sessions/missing/turns", map[string]string{"text": "hi"}).Code)
}

func TestSubmitTurn(t *testing.T) {
	r, svc := setupRouter(joyful())
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	resp := do(r, http.MethodPost, "/sessions/"+session.ID+"/turns", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	var turn soul.Turn
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &turn))
	assert.Equal(t, "Hello", turn.User.Content)
	assert.Equal(t, "Hi there!", turn.Reply.Content)
	assert.Equal(t, emotion.Joy, turn.Emotion)
	assert.Equal(t, 1, turn.Memory.InteractionsCount)

	resp = do(r, http.MethodGet, "/sessions/"+session.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var messages []chatmodel.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, chatmodel.RoleUser, messages[0].Role)
	assert.Equal(t, chatmodel.RoleModel, messages[1].Role)
}

func TestSubmitTurnBlankText(t *testing.T) {
	r, svc := setupRouter(joyful())
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	resp := do(r, http.MethodPost, "/sessions/"+session.ID+"/turns", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, session.Conversation.Messages())
}

func TestSubmitTurnWhileThinking(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r, svc := setupRouter(collaboratorFunc(func(context.Context, []chatmodel.Turn, string) ai.SoulResponse {
		close(entered)
		<-release
		return ai.SoulResponse{Emotion: emotion.Neutral, Response: "Done."}
	}))
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		done <- do(r, http.MethodPost, "/sessions/"+session.ID+"/turns", map[string]string{"text": "first"}).Code
	}()
	<-entered

	resp := do(r, http.MethodPost, "/sessions/"+session.ID+"/turns", map[string]string{"text": "second"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, session.Conversation.Memory().InteractionsCount)
}

func TestListSessions(t *testing.T) {
	r, svc := setupRouter(joyful())
	_, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	resp := do(r, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []chatmodel.Session
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}
