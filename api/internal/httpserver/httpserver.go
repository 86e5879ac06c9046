package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"calc-api/api/internal/handle"
)

const shutdownTimeout = 10 * time.Second

// NewMux registers the calculator routes.
func NewMux(h *handle.Handle) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calculate", h.Calculate)
	mux.HandleFunc("POST /{$}", h.Root)
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /healthz", h.Healthz)
	return mux
}

// WithCORS lets the browser canvas post from another origin.
func WithCORS(next http.Handler, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(next)
}

func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// StartHTTP serves only /healthz and a banner; the bot uses it in polling mode
// so the platform sees a live port.
func StartHTTP(addr, healthzBody string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(healthzBody))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("calculator telegram bot"))
	})
	return http.ListenAndServe(addr, mux)
}
