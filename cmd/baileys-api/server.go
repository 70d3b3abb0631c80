package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/internal/middleware"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the REST surface over the session registry, the message
// service and the outcome-event bus.
type Server struct {
	router     *mux.Router
	server     *http.Server
	logger     *logrus.Logger
	cfg        models.ServerConfig
	registry   *service.Registry
	msgService *service.MessageService
	bus        *events.Bus
}

func NewServer(cfg models.ServerConfig, registry *service.Registry, msgService *service.MessageService, bus *events.Bus, logger *logrus.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		cfg:        cfg,
		registry:   registry,
		msgService: msgService,
		bus:        bus,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	s.router.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/{sessionId}/events", s.handleIngestEvent).Methods(http.MethodPost)

	messages := s.router.PathPrefix("/sessions/{sessionId}/chats/{jid}/messages").Subrouter()
	messages.HandleFunc("", s.handleListMessages).Methods(http.MethodGet)
	messages.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)
	messages.HandleFunc("/send/bulk", s.handleSendBulk).Methods(http.MethodPost)
	messages.HandleFunc("/download", s.handleDownload).Methods(http.MethodPost)
	messages.HandleFunc("/{messageId}", s.handleDeleteMessage).Methods(http.MethodDelete)
	messages.HandleFunc("/{messageId}/me", s.handleDeleteMessageForMe).Methods(http.MethodDelete)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSec) * time.Second,
	}

	s.logger.WithField("port", s.cfg.Port).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
