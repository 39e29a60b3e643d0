package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/internal/event"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	chatmodel "github.com/zhouzirui/motion-soul/backend/internal/model/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/voice"
)

type surprisedCollaborator struct{}

func (surprisedCollaborator) Generate(context.Context, []chatmodel.Turn, string) ai.SoulResponse {
	return ai.SoulResponse{Emotion: emotion.Surprise, Response: "Oh! Really?"}
}

type wireEvent struct {
	Type      event.Type      `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func setup(t *testing.T, mode string) (*websocket.Conn, *chatservice.Session, *chatservice.Service) {
	t.Helper()
	store := blueprint.NewMemoryStore(blueprint.Seed())
	svc := chatservice.NewService(store, func(blueprint.Blueprint) ai.Collaborator { return surprisedCollaborator{} },
		chatservice.Options{SpeechMode: mode, PreferredVoices: []string{"Samantha"}}, zerolog.Nop())
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewWebSocketHandler(svc, 30).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + session.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, session, svc
}

// next reads until an event of type want arrives, skipping frames and others.
func next(t *testing.T, conn *websocket.Conn, want event.Type) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var evt wireEvent
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Type == want {
			return evt
		}
	}
}

func write(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: typ, Data: raw}))
}

func TestSnapshotThenFrames(t *testing.T) {
	conn, session, _ := setup(t, config.SpeechModeOff)

	var first wireEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, event.TypeSnapshot, first.Type)
	assert.Equal(t, session.ID, first.SessionID)

	frame := next(t, conn, event.TypeFrame)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Contains(t, payload, "color")
	assert.Contains(t, payload, "blink")
}

func TestRelaySpeechRoundTrip(t *testing.T) {
	conn, session, _ := setup(t, config.SpeechModeRelay)
	next(t, conn, event.TypeSnapshot)

	write(t, conn, "voices", VoicesMessage{Voices: []voice.Voice{{Name: "Samantha", Lang: "en-US"}}})
	write(t, conn, "text", TextMessage{Text: "Guess what?"})

	var cmd voice.Command
	for cmd.Action != voice.ActionSpeak {
		evt := next(t, conn, event.TypeSpeech)
		require.NoError(t, json.Unmarshal(evt.Data, &cmd))
	}
	assert.Equal(t, "Oh! Really?", cmd.Text)
	assert.Equal(t, "Samantha", cmd.Voice)
	assert.InDelta(t, 1.3, cmd.Pitch, 1e-9)
	assert.Equal(t, emotion.Surprise, session.Conversation.Snapshot().Emotion)

	write(t, conn, "speech", SpeechMessage{UtteranceID: cmd.UtteranceID, Status: voice.StatusStart})
	var status struct{ Speaking bool }
	for !status.Speaking {
		evt := next(t, conn, event.TypeStatus)
		require.NoError(t, json.Unmarshal(evt.Data, &status))
	}
	assert.True(t, session.Conversation.FrameInput().Speaking)

	write(t, conn, "speech", SpeechMessage{UtteranceID: cmd.UtteranceID, Status: voice.StatusEnd})
	for status.Speaking {
		evt := next(t, conn, event.TypeStatus)
		require.NoError(t, json.Unmarshal(evt.Data, &status))
	}
	assert.False(t, session.Conversation.Snapshot().Speaking)
}

func TestBlankTextReportsError(t *testing.T) {
	conn, session, _ := setup(t, config.SpeechModeOff)
	next(t, conn, event.TypeSnapshot)

	write(t, conn, "text", TextMessage{Text: "  "})
	evt := next(t, conn, event.TypeError)
	assert.Contains(t, string(evt.Data), "input is empty")
	assert.Empty(t, session.Conversation.Messages())
}

func TestUnsupportedMessageType(t *testing.T) {
	conn, _, _ := setup(t, config.SpeechModeOff)
	next(t, conn, event.TypeSnapshot)

	write(t, conn, "audio", map[string]string{})
	evt := next(t, conn, event.TypeError)
	assert.Contains(t, string(evt.Data), "unsupported message type: audio")
}

func TestServiceCloseEndsConnection(t *testing.T) {
	conn, _, svc := setup(t, config.SpeechModeOff)
	next(t, conn, event.TypeSnapshot)

	svc.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var evt wireEvent
		if err := conn.ReadJSON(&evt); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			return
		}
	}
}
