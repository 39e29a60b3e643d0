package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/motion-soul/backend/internal/animation"
	"github.com/zhouzirui/motion-soul/backend/internal/event"
	chatservice "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/voice"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
	"github.com/zhouzirui/motion-soul/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	outboxSize   = 64
)

// errBusClosed ends a connection whose session bus was shut down.
var errBusClosed = errors.New("session bus closed")

// WebSocketHandler 推送动画帧与会话事件，并接收文本输入、音色列表与发声状态。
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	fps      int
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, fps int) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		fps:     fps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
}

// VoicesMessage 客户端可用的音色列表
type VoicesMessage struct {
	Voices []voice.Voice `json:"voices"`
}

// SpeechMessage 客户端回报的发声状态
type SpeechMessage struct {
	UtteranceID string       `json:"utteranceId"`
	Status      voice.Status `json:"status"`
}

type connection struct {
	session *chatservice.Session
	conn    *websocket.Conn
	outbox  chan event.Event
	logger  zerolog.Logger
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	logger := log.Component(r.Context(), "websocket").With().Str("session", sessionID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	logger.Info().Msg("client connected")
	defer logger.Info().Msg("client disconnected")

	c := &connection{
		session: session,
		conn:    conn,
		outbox:  make(chan event.Event, outboxSize),
		logger:  logger,
	}

	// 订阅必须先于快照发送，避免丢失连接期间的事件
	events, unsubscribe := session.Bus().Subscribe(0)
	defer unsubscribe()

	c.send(r.Context(), event.New(sessionID, event.TypeSnapshot, session.Conversation.Snapshot()))

	g, ctx := errgroup.WithContext(context.WithoutCancel(r.Context()))

	g.Go(func() error { return c.writeLoop(ctx) })
	g.Go(func() error { return c.readLoop(ctx) })
	g.Go(func() error { return c.forwardEvents(ctx, events) })
	g.Go(func() error {
		return animation.NewLoop(h.fps).Run(ctx, session.Conversation, animation.SinkFunc(c.renderFrame))
	})

	if err := g.Wait(); err != nil && !isExpectedClose(err) {
		logger.Warn().Err(err).Msg("connection ended with error")
	}

	// 中继模式下客户端就是发声设备，断开后不会再回报结束
	if session.Relay != nil {
		session.Trigger.Stop()
	}
}

func (c *connection) send(ctx context.Context, evt event.Event) bool {
	select {
	case c.outbox <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *connection) renderFrame(ctx context.Context, frame animation.State) error {
	c.send(ctx, event.New(c.session.ID, event.TypeFrame, frame))
	return nil
}

func (c *connection) sendError(ctx context.Context, message string) {
	c.send(ctx, event.New(c.session.ID, event.TypeError, map[string]string{"message": message}))
}

// writeLoop 是唯一写连接的 goroutine，同时负责定期 ping。
// 退出时关闭连接以解除 readLoop 的阻塞。
func (c *connection) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case evt := <-c.outbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				return err
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func (c *connection) forwardEvents(ctx context.Context, events <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return errBusClosed
			}
			c.send(ctx, evt)
		}
	}
}

func (c *connection) readLoop(ctx context.Context) error {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != c.session.ID {
			c.sendError(ctx, "session mismatch")
			continue
		}
		c.handleMessage(ctx, &msg)
	}
}

func (c *connection) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError(ctx, "invalid text payload")
			return
		}
		go c.submit(ctx, text.Text)
	case "voices":
		var voices VoicesMessage
		if err := json.Unmarshal(msg.Data, &voices); err != nil {
			c.sendError(ctx, "invalid voices payload")
			return
		}
		if c.session.Relay != nil {
			c.session.Relay.SetVoices(voices.Voices)
		}
	case "speech":
		var status SpeechMessage
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			c.sendError(ctx, "invalid speech payload")
			return
		}
		if c.session.Relay != nil {
			c.session.Relay.HandleStatus(status.UtteranceID, status.Status)
		}
	case "stop":
		c.session.Trigger.Stop()
	default:
		c.sendError(ctx, "unsupported message type: "+msg.Type)
	}
}

// submit 在独立 goroutine 中运行回合，回复经事件总线送达
func (c *connection) submit(ctx context.Context, text string) {
	if _, err := c.session.Conversation.SubmitUserTurn(ctx, text); err != nil {
		c.logger.Debug().Err(err).Msg("turn rejected")
		c.sendError(ctx, err.Error())
	}
}

func isExpectedClose(err error) bool {
	return errors.Is(err, errBusClosed) || errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
