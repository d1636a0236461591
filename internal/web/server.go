package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sitio/sitio/internal/cache"
	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/contact"
	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/web/handlers"
	"github.com/sitio/sitio/internal/worker"
)

// Server представляет веб-сервер сайта
type Server struct {
	cfg        *config.Config
	root       string
	router     *chi.Mux
	handlers   *handlers.Handlers
	workerPool *worker.Pool
	limiter    *cache.Limiter
	httpServer *http.Server
}

// NewServer создает веб-сервер, отдающий файлы из root
func NewServer(cfg *config.Config, root string, workerPool *worker.Pool) *Server {
	s := &Server{
		cfg:        cfg,
		root:       root,
		workerPool: workerPool,
		limiter:    cache.NewLimiter(cfg.Contact.RateLimit, cfg.Contact.RateWindow),
	}
	s.handlers = handlers.NewHandlers(cfg, root, workerPool, s.limiter, contact.NewPoolNotifier(workerPool))
	s.setupRoutes()
	return s
}

// Handler возвращает корневой http.Handler (используется в тестах)
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	h := s.handlers

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(60 * time.Second))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	r.Get("/health", h.Health)

	// API
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.NotFound(h.NotFound)
		r.MethodNotAllowed(h.NotFound)

		r.Post("/contact", h.Contact)
		r.Get("/gallery/{page}", h.GalleryPage)
		r.Get("/stats", h.QueueStats)
	})

	// Файлы сайта
	r.Get("/*", h.Static)
	r.Head("/*", h.Static)

	s.router = r
}

// Start запускает веб-сервер и блокируется до отмены ctx, после чего
// корректно завершает обработку запросов
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoLog.Printf("Server listening on http://%s (serving %s)", ln.Addr(), s.root)
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.InfoLog.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) close() {
	s.handlers.Close()
	s.limiter.Stop()
}
