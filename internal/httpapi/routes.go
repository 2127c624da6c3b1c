package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/car-build-backend/internal/hub"
)

type Deps struct {
	Hub       *hub.Hub
	Registry  *hub.Registry
	WS        http.Handler
	Logger    *zap.Logger
	PublicURL string
	SocketURL string
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger.Named("http")))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(d.Hub, d.Registry))
	r.Get("/catalog", Catalog(d.Hub.Catalog()))
	r.Get("/config.js", ConfigJS(d.SocketURL))
	r.Route("/rooms/{code}", func(r chi.Router) {
		r.Get("/", RoomStatus(d.Hub))
		r.Get("/qr", RoomQR(d.Hub, d.PublicURL))
	})
	r.Get("/ws", d.WS.ServeHTTP)
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("took", time.Since(start)))
		})
	}
}
