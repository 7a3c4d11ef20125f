package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mentionranker "sheepyard/contexts/community/mention-ranker"
	eventpolls "sheepyard/contexts/scheduling/event-polls"
	_ "sheepyard/internal/platform/httpserver/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	moduleName = "internal/platform/httpserver"

	readHeaderTimeout = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

type Server struct {
	router   chi.Router
	logger   *slog.Logger
	addr     string
	polls    eventpolls.Module
	mentions mentionranker.Module
	metrics  http.Handler
	http     *http.Server
}

type Options struct {
	Addr    string
	Metrics http.Handler
	Logger  *slog.Logger
}

func New(polls eventpolls.Module, mentions mentionranker.Module, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		addr:     addr,
		polls:    polls,
		mentions: mentions,
		metrics:  opts.Metrics,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", moduleName,
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", moduleName,
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/ws/polls/{poll_id}", s.handleLivePoll)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Post("/", s.handleCreatePoll)
			r.Get("/", s.handleListPolls)
			r.Route("/{poll_id}", func(r chi.Router) {
				r.Get("/", s.handleGetPoll)
				r.Patch("/", s.handleUpdatePoll)
				r.Delete("/", s.handleDeletePoll)
				r.Post("/series", s.handleModifySeries)
				r.Post("/share", s.handleSharePoll)
				r.Get("/calendar.ics", s.handleCalendar)
			})
		})
		r.Post("/votes", s.handleToggleVote)
		r.Get("/members/ranked", s.handleRankedMembers)
		r.Post("/members/mentions", s.handleRecordMentions)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request served",
			"event", "http_request_served",
			"module", moduleName,
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
