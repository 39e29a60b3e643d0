package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

type ttsCall struct {
	resourceID string
	request    ttsRequest
}

func newTTSServer(t *testing.T, respond func(conn *websocket.Conn, call ttsCall)) (*httptest.Server, *[]ttsCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []ttsCall
	)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app", r.Header.Get("X-Api-App-Key"))
		assert.Equal(t, "token", r.Header.Get("X-Api-Access-Key"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := DecodeFrame(data)
		require.NoError(t, err)

		call := ttsCall{resourceID: r.Header.Get("X-Api-Resource-Id")}
		require.NoError(t, json.Unmarshal(frame.Payload, &call.request))

		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		respond(conn, call)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sendFrame(conn *websocket.Conn, frame *Frame) {
	_ = conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

func finishedFrame(body string) *Frame {
	return &Frame{
		Header:    Header{Type: FullServerResponse, Flags: WithEvent, Serialization: JSONSerialization},
		Event:     EventSessionFinished,
		SessionID: "s",
		Payload:   []byte(body),
	}
}

func testClient(url string, voices ...string) *Client {
	return NewClient(Config{
		AppID:       "app",
		AccessToken: "token",
		Voices:      voices,
		Language:    "en-US",
		Endpoint:    url,
		Timeout:     5 * time.Second,
	}, zerolog.Nop())
}

func TestSynthesizeCollectsAudio(t *testing.T) {
	srv, calls := newTTSServer(t, func(conn *websocket.Conn, _ ttsCall) {
		sendFrame(conn, &Frame{Header: Header{Type: AudioOnlyServerResponse}, Payload: []byte("abc")})
		data := base64.StdEncoding.EncodeToString([]byte("def"))
		sendFrame(conn, &Frame{
			Header:  Header{Type: FullServerResponse, Serialization: JSONSerialization},
			Payload: []byte(`{"code":0,"reqid":"r-1","data":"` + data + `"}`),
		})
		sendFrame(conn, finishedFrame(`{"code":0,"addition":{"duration":"1500"}}`))
	})

	client := testClient(wsURL(srv), "en_male_glen_emo_v2_mars_bigtts")
	result, err := client.Synthesize(context.Background(), Request{Text: "Hello", Rate: 1.2, Emotion: emotion.Joy})
	require.NoError(t, err)

	assert.Equal(t, "abcdef", string(result.Audio))
	assert.Equal(t, "mp3", result.Format)
	assert.Equal(t, "r-1", result.RequestID)
	assert.Equal(t, 1500*time.Millisecond, result.Duration)
	assert.Equal(t, "en_male_glen_emo_v2_mars_bigtts", result.Voice)

	require.Len(t, *calls, 1)
	params := (*calls)[0].request.ReqParams
	assert.Equal(t, "Hello", params.Text)
	assert.InDelta(t, 1.2, params.AudioParams.SpeedRatio, 1e-6)
	assert.Equal(t, "happy", params.AudioParams.Emotion)
	assert.Equal(t, "en-US", params.Language)
	assert.Equal(t, "seed-tts-2.0", (*calls)[0].resourceID)
}

func TestSynthesizeRetriesResourceMismatch(t *testing.T) {
	srv, calls := newTTSServer(t, func(conn *websocket.Conn, call ttsCall) {
		if call.resourceID == "seed-tts-2.0" {
			sendFrame(conn, &Frame{
				Header:    Header{Type: ErrorMessage},
				ErrorCode: 1,
				Payload:   []byte(`{"error":"resource ID is mismatched with speaker related resource"}`),
			})
			return
		}
		sendFrame(conn, &Frame{Header: Header{Type: AudioOnlyServerResponse, Flags: LastPacketNoSequence}, Payload: []byte("ok")})
		sendFrame(conn, finishedFrame(`{"code":0}`))
	})

	result, err := testClient(wsURL(srv)).Synthesize(context.Background(), Request{Text: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(result.Audio))

	require.Len(t, *calls, 2)
	assert.Equal(t, "volc.service_type.10029", (*calls)[1].resourceID)
	assert.Equal(t, DefaultSpeaker, (*calls)[1].request.ReqParams.Speaker)
}

func TestSynthesizeAPIError(t *testing.T) {
	srv, _ := newTTSServer(t, func(conn *websocket.Conn, _ ttsCall) {
		sendFrame(conn, finishedFrame(`{"code":40402003,"message":"quota exceeded"}`))
	})

	_, err := testClient(wsURL(srv)).Synthesize(context.Background(), Request{Text: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSynthesizeRespectsContext(t *testing.T) {
	srv, _ := newTTSServer(t, func(conn *websocket.Conn, _ ttsCall) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testClient(wsURL(srv)).Synthesize(ctx, Request{Text: "Hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSynthesizeRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{}, zerolog.Nop()).Synthesize(context.Background(), Request{Text: "Hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolveResourceCandidates(t *testing.T) {
	assert.Equal(t, []string{"volc.megatts.default"}, resolveResourceCandidates("S_clone_speaker"))
	assert.Equal(t, []string{"seed-tts-2.0", "volc.service_type.10029"}, resolveResourceCandidates("en_female_amy_jupiter_bigtts"))
	assert.Equal(t, []string{"volc.service_type.10029", "seed-tts-2.0"}, resolveResourceCandidates("en_male_classic"))
}

func TestResolveSpeakerCandidates(t *testing.T) {
	assert.Equal(t, []string{"a", "B"}, resolveSpeakerCandidates("a", []string{"B", "b", "A"}))
	assert.Equal(t, []string{DefaultSpeaker}, resolveSpeakerCandidates("", nil))
	assert.Equal(t, []string{DefaultSpeaker, "x"}, resolveSpeakerCandidates("default", []string{"x"}))
}

func TestEmotionParameters(t *testing.T) {
	enable, label, scale := EmotionParameters("en_female_skye_emo_v2_mars_bigtts", emotion.Anger)
	assert.True(t, enable)
	assert.Equal(t, "angry", label)
	assert.Equal(t, float32(4), scale)

	enable, _, _ = EmotionParameters("en_female_skye_emo_v2_mars_bigtts", emotion.Neutral)
	assert.False(t, enable)

	enable, _, _ = EmotionParameters(DefaultSpeaker, emotion.Joy)
	assert.False(t, enable)
}
