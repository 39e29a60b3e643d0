package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/handler/blueprint"
	"github.com/zhouzirui/motion-soul/backend/internal/handler/chat"
	"github.com/zhouzirui/motion-soul/backend/internal/handler/realtime"
	"github.com/zhouzirui/motion-soul/backend/internal/handler/stream"
	blueprintModel "github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
	chatService "github.com/zhouzirui/motion-soul/backend/internal/service/chat"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
	"github.com/zhouzirui/motion-soul/backend/pkg/utils"
)

// Options carries router settings that are not services.
type Options struct {
	FPS    int
	Logger zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(blueprints blueprintModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(opts.Logger))
	r.Use(log.Inject(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		blueprint.New(blueprints).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		realtime.NewWebSocketHandler(chatSvc, opts.FPS).RegisterRoutes(api)
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
