package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/services/intake"
	"gitlab.com/grader-api/internal/handlers/submissions"
)

type ServiceProvider struct {
	intakeService *intake.Service
}

func NewServiceProvider(intakeService *intake.Service) *ServiceProvider {
	return &ServiceProvider{
		intakeService: intakeService,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	submissions.
		NewHandler(s.ServiceProvider.intakeService, s.logger).
		RegisterRoutes(r)
	s.router = r
	return nil
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
	}
}
