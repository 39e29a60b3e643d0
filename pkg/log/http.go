package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger is a chi access-log middleware backed by zerolog.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{logger: logger})
}

type formatter struct {
	logger zerolog.Logger
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &entry{
		logger: f.logger.With().
			Str("component", "http").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Logger(),
	}
}

type entry struct {
	logger zerolog.Logger
}

func (e *entry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	evt := e.logger.Info()
	if status >= http.StatusInternalServerError {
		evt = e.logger.Error()
	}
	evt.Int("status", status).
		Int("bytes", bytes).
		Dur("elapsed", elapsed).
		Msg("request")
}

func (e *entry) Panic(v interface{}, stack []byte) {
	e.logger.Error().
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panic")
}

// Inject attaches logger, tagged with the request id, to every request context
// so handlers can call FromCtx.
func Inject(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		})
	}
}
