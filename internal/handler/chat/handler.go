package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/service/soul"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
	"github.com/zhouzirui/motion-soul/backend/pkg/utils"
)

// Handler 会话与回合的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Get("/sessions/{sessionID}/messages", h.handleListMessages)
	r.Post("/sessions/{sessionID}/turns", h.handleSubmitTurn)
}

// handleCreateSession 创建会话，blueprintId 缺省时使用默认灵魂
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BlueprintID string `json:"blueprintId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.BlueprintID)
	if err != nil {
		if errors.Is(err, chatService.ErrBlueprintNotFound) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session.Conversation.Snapshot())
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.List(r.Context()))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Conversation.Snapshot())
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Conversation.Messages())
}

// handleSubmitTurn 提交用户输入并同步返回灵魂的回复
func (h *Handler) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := session.Conversation.SubmitUserTurn(r.Context(), payload.Text)
	switch {
	case errors.Is(err, soul.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, soul.ErrTurnInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.FromCtx(r.Context()).Error().Err(err).Str("session", session.ID).Msg("turn failed")
		utils.RespondError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}
