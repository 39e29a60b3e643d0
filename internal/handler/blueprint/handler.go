package blueprint

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	"github.com/zhouzirui/motion-soul/backend/pkg/utils"
)

// Handler 蓝图与调色板的HTTP处理器
type Handler struct {
	blueprints blueprint.Store
}

// New 创建蓝图处理器
func New(blueprints blueprint.Store) *Handler {
	return &Handler{
		blueprints: blueprints,
	}
}

// RegisterRoutes 注册蓝图相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/blueprints", h.handleListBlueprints)
	r.Get("/palette", h.handlePalette)
}

func (h *Handler) handleListBlueprints(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.blueprints.List())
}

// handlePalette 返回情绪标签到颜色的映射
func (h *Handler) handlePalette(w http.ResponseWriter, r *http.Request) {
	palette := make(map[emotion.Tag]string)
	for _, tag := range emotion.All() {
		palette[tag] = emotion.Hex(tag)
	}
	utils.RespondJSON(w, http.StatusOK, palette)
}
