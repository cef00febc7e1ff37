package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/de-tools/epi-atlas/pkg/handlers/projection"
	"github.com/de-tools/epi-atlas/pkg/observability"
	epimiddleware "github.com/de-tools/epi-atlas/pkg/server/middleware"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

type WebAPI struct {
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Projections projection.Dispatcher
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

type Config struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) http.Handler {
	logger := config.Dependencies.Logger
	metrics := config.Dependencies.Metrics
	h := handlers.NewHandler(config.Dependencies.Projections)

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(epimiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(epimiddleware.AllowAnyOrigin)
		r.Use(middleware.Timeout(timeout))

		r.Method(http.MethodPost, "/projections",
			metrics.WrapHandler("/api/v1/projections", http.HandlerFunc(h.CreateProjection)))
		r.Method(http.MethodPost, "/projections/batch",
			metrics.WrapHandler("/api/v1/projections/batch", http.HandlerFunc(h.CreateBatch)))
		r.Method(http.MethodGet, "/models",
			metrics.WrapHandler("/api/v1/models", http.HandlerFunc(h.ListModels)))
		r.Method(http.MethodGet, "/regions",
			metrics.WrapHandler("/api/v1/regions", http.HandlerFunc(h.ListRegions)))
	})

	return router
}

func NewWebAPI(config Config) *WebAPI {
	logger := config.Dependencies.Logger

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &WebAPI{
		logger:          &logger,
		shutdownTimeout: shutdownTimeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           ConfigureRouter(config),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
