package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	"ballotbox/internal/platform/artifacts"
	_ "ballotbox/internal/platform/httpserver/docs"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Addr               string
	StaticDir          string
	ArtifactsDir       string
	CORSAllowedOrigins []string
	Metrics            http.Handler
}

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	ballots  ballotengine.Module
	artifact artifacts.Artifact
	options  Options
}

func New(
	ballots ballotengine.Module,
	artifact artifacts.Artifact,
	options Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Addr == "" {
		options.Addr = ":3000"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     options.Addr,
		ballots:  ballots,
		artifact: artifact,
		options:  options,
	}
	s.registerRoutes()
	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.options.Metrics != nil {
		s.mux.Handle("GET /metrics", s.options.Metrics)
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /v1/ballots", s.handleCreateBallot)
	s.mux.HandleFunc("GET /v1/ballots", s.handleListBallots)
	s.mux.HandleFunc("GET /v1/ballots/interface", s.handleBallotInterface)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}", s.handleGetBallot)
	s.mux.HandleFunc("POST /v1/ballots/{ballot_id}/voters", s.handleAddVoter)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}/voters/{address}", s.handleGetVoter)
	s.mux.HandleFunc("POST /v1/ballots/{ballot_id}/votes", s.handleVote)
	s.mux.HandleFunc("POST /v1/ballots/{ballot_id}/delegations", s.handleDelegate)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}/winner", s.handleWinner)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}/tally", s.handleTally)

	staticCORS := cors.New(cors.Options{
		AllowedOrigins:       s.options.CORSAllowedOrigins,
		AllowedMethods:       []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		OptionsSuccessStatus: http.StatusOK,
	})
	s.mux.Handle("/artifacts/", staticCORS.Handler(s.artifactsHandler()))
	s.mux.Handle("/", staticCORS.Handler(s.pagesHandler()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
