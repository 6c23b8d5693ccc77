package router

import (
	"net/http"

	"barsync/internal/handler"
	"barsync/internal/middleware"

	"github.com/rs/zerolog"
)

// Options holds the optional file-serving routes.
type Options struct {
	UploadDir string // served at /uploads/ when set
	StaticDir string // served at / when set
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	menuHandler *handler.MenuHandler,
	orderHandler *handler.OrderHandler,
	wsHandler *handler.WebSocketHandler,
	opts Options,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Menu routes
	mux.HandleFunc("GET /api/cocktails", menuHandler.List)
	mux.HandleFunc("POST /api/cocktails", menuHandler.Create)
	mux.HandleFunc("GET /api/cocktails/{id}", menuHandler.Get)
	mux.HandleFunc("PUT /api/cocktails/{id}", menuHandler.Update)
	mux.HandleFunc("DELETE /api/cocktails/{id}", menuHandler.Delete)

	// Order routes
	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.Get)
	mux.HandleFunc("PUT /api/orders/{id}/status", orderHandler.UpdateStatus)

	// Viewer channel
	mux.HandleFunc("GET /ws", wsHandler.Serve)

	if opts.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir))))
	}
	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	// Apply middleware in order: Recovery -> CorrelationID -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.CorrelationID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
