// Package server provides the HTTP API for AgroVision.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/agrovision/internal/chat"
	"github.com/hyperjump/agrovision/internal/config"
	"github.com/hyperjump/agrovision/internal/crop"
	"github.com/hyperjump/agrovision/internal/disease"
	"github.com/hyperjump/agrovision/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the AgroVision API.
type Server struct {
	crop    *crop.Service
	disease *disease.Service
	chat    chat.Backend
	history storage.PredictionLog // nil when the prediction log is disabled
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. history may be nil.
func NewServer(
	cropSvc *crop.Service,
	diseaseSvc *disease.Service,
	chatBackend chat.Backend,
	history storage.PredictionLog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		crop:    cropSvc,
		disease: diseaseSvc,
		chat:    chatBackend,
		history: history,
		config:  cfg,
		logger:  logger,
	}
}

// Handler returns the router with all middleware and routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Post("/predict-crop", s.handlePredictCrop)
	r.Post("/predict-disease", s.handlePredictDisease)
	r.Post("/chat", s.handleChat)
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server",
		zap.String("addr", addr),
		zap.Bool("chat_configured", s.chat.Configured()),
		zap.Bool("prediction_log", s.history != nil),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// recoverer turns a handler panic into the generic 500 body.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				s.respondError(w, http.StatusInternalServerError, internalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
