package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

const (
	// DefaultEndpoint is the Volcengine unidirectional TTS stream.
	DefaultEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"
	// DefaultSpeaker is used when no voice is requested or configured.
	DefaultSpeaker = "en_female_amy_jupiter_bigtts"

	defaultFormat     = "mp3"
	defaultSampleRate = 24000
)

// ErrNotConfigured is returned when AppID or AccessToken is missing.
var ErrNotConfigured = errors.New("volcengine speech credentials missing")

// Config 描述火山引擎 TTS 客户端配置。
type Config struct {
	AppID       string
	AccessToken string
	// Voices are fallback speakers tried after the requested one.
	Voices     []string
	ResourceID string
	Language   string
	Endpoint   string
	Timeout    time.Duration
}

// Enabled 表示是否提供了必需的凭证。
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.AccessToken) != ""
}

// Request 一次合成请求。Rate 为 1 表示原速。
type Request struct {
	Text    string
	Voice   string
	Rate    float64
	Emotion emotion.Tag
	Format  string
	UserID  string
}

// Result 合成得到的完整音频。
type Result struct {
	Audio     []byte
	Format    string
	Voice     string
	Duration  time.Duration
	RequestID string
}

// Client 火山引擎 TTS WebSocket 客户端。
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "tts").Logger(),
	}
}

// Voices lists the configured speakers, or the default speaker.
func (c *Client) Voices() []string {
	var voices []string
	for _, v := range c.cfg.Voices {
		if v = strings.TrimSpace(v); v != "" {
			voices = append(voices, v)
		}
	}
	if len(voices) == 0 {
		return []string{DefaultSpeaker}
	}
	return voices
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format       string  `json:"format"`
	SampleRate   int     `json:"sample_rate"`
	SpeedRatio   float32 `json:"speed_ratio,omitempty"`
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotion_scale,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// Synthesize 合成 req.Text。依次尝试候选音色与资源 ID，资源不匹配时换下一个。
func (c *Client) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if !c.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("TTS text is empty")
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	format := strings.TrimSpace(req.Format)
	if format == "" || format == "wav" {
		format = defaultFormat
	}

	speakers := resolveSpeakerCandidates(req.Voice, c.Voices())
	var lastMismatch error

	for speakerIdx, speaker := range speakers {
		resources := resolveResourceCandidates(speaker)
		if c.cfg.ResourceID != "" {
			resources = []string{c.cfg.ResourceID}
		}

		for resourceIdx, resourceID := range resources {
			result, err := c.synthesizeWith(ctx, req, speaker, resourceID, format)
			if err == nil {
				if resourceIdx > 0 || speakerIdx > 0 {
					c.logger.Info().Str("voice", speaker).Str("resource", resourceID).Msg("fallback voice succeeded")
				}
				return result, nil
			}
			if !isResourceMismatchError(err) {
				return nil, err
			}
			c.logger.Warn().Err(err).Str("voice", speaker).Str("resource", resourceID).Msg("resource mismatch")
			lastMismatch = err
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("TTS synthesis failed: no compatible resource id for voices %v", speakers)
}

func (c *Client) synthesizeWith(ctx context.Context, req Request, speaker, resourceID, format string) (*Result, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", strings.TrimSpace(c.cfg.AppID))
	header.Set("X-Api-Access-Key", strings.TrimSpace(c.cfg.AccessToken))
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			c.logger.Debug().Str("logid", logID).Msg("tts connected")
		}
	}

	payload, err := json.Marshal(c.buildRequest(req, speaker, format))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, NewClientRequest(payload, NoCompression).Encode()); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration time.Duration
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS message: %w", err)
		}

		body, err := frame.Body()
		if err != nil {
			return nil, fmt.Errorf("failed to decompress TTS payload: %w", err)
		}

		switch frame.Header.Type {
		case ErrorMessage:
			return nil, fmt.Errorf("TTS error %d: %s", frame.ErrorCode, string(body))

		case AudioOnlyServerResponse:
			audio.Write(body)

		case FullServerResponse:
			var msg ttsServerMessage
			if len(body) > 0 {
				if err := json.Unmarshal(body, &msg); err != nil {
					c.logger.Debug().Err(err).Msg("unparseable TTS response payload")
				} else {
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("TTS API error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if ms, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
						duration = time.Duration(ms) * time.Millisecond
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			if frame.Event == EventSessionFailed {
				return nil, fmt.Errorf("TTS session failed: %s", string(body))
			}

			finished := (frame.hasEvent() && frame.Event == EventSessionFinished) || frame.IsLast() || msg.Sequence < 0
			if !finished {
				continue
			}
			if audio.Len() == 0 {
				return nil, errors.New("TTS audio is empty")
			}
			if reqID == "" {
				reqID = connectID
			}
			return &Result{
				Audio:     audio.Bytes(),
				Format:    format,
				Voice:     speaker,
				Duration:  duration,
				RequestID: reqID,
			}, nil

		default:
			c.logger.Debug().Uint8("type", uint8(frame.Header.Type)).Msg("unexpected TTS message type")
		}
	}
}

func (c *Client) buildRequest(req Request, speaker, format string) *ttsRequest {
	out := &ttsRequest{}

	out.User.UID = strings.TrimSpace(req.UserID)
	if out.User.UID == "" {
		out.User.UID = uuid.NewString()
	}

	out.ReqParams.Speaker = speaker
	out.ReqParams.Text = req.Text
	out.ReqParams.AudioParams.Format = format
	out.ReqParams.AudioParams.SampleRate = defaultSampleRate

	if req.Rate > 0 && req.Rate != 1.0 {
		out.ReqParams.AudioParams.SpeedRatio = float32(req.Rate)
	}

	if enable, label, scale := EmotionParameters(speaker, req.Emotion); enable {
		out.ReqParams.AudioParams.Emotion = label
		out.ReqParams.AudioParams.EmotionScale = scale
	}

	out.ReqParams.Language = strings.TrimSpace(c.cfg.Language)
	out.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return out
}

func resolveResourceCandidates(voice string) []string {
	const (
		defaultResource = "volc.service_type.10029"
		megaResource    = "volc.megatts.default"
		seedResource    = "seed-tts-2.0"
	)

	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "venus", "jupiter", "saturn", "neptune", "mercury", "pluto", "mars"} {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}
	return []string{defaultResource, seedResource}
}

// resolveSpeakerCandidates 合并请求音色与后备音色，去重且大小写不敏感。
func resolveSpeakerCandidates(requested string, fallbacks []string) []string {
	aliases := map[string]string{
		"default":    DefaultSpeaker,
		"en_default": DefaultSpeaker,
	}

	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if mapped, ok := aliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	for _, f := range fallbacks {
		add(f)
	}
	if len(candidates) == 0 {
		return []string{DefaultSpeaker}
	}
	return candidates
}

func isResourceMismatchError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
