package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/habiliai/personachat/chat"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/db"
	"github.com/habiliai/personachat/internal/metrics"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/habiliai/personachat/internal/ratelimit"
	"github.com/habiliai/personachat/persona"
	"github.com/invopop/jsonschema"
	"github.com/jcooky/go-din"
	"gorm.io/gorm"
)

const (
	serviceName     = "personachat"
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

var endpoints = []string{
	"POST /chat",
	"GET /chat_history?user_id=",
	"GET /personas",
	"GET /schema/chat",
	"GET /health",
	"GET /metrics",
}

type (
	server struct {
		logger  *slog.Logger
		chat    *chat.Service
		catalog *persona.Catalog
		db      *gorm.DB
		metrics *metrics.Metrics
		limiter *ratelimit.Pool
	}

	errorResponse struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}

	historyResponse struct {
		UserID  string                        `json:"user_id" yaml:"user_id"`
		Threads map[string]chat.ThreadHistory `json:"threads" yaml:"threads"`
	}
)

func newServer(c *din.Container) (*server, error) {
	logger, err := din.Get[*slog.Logger](c, mylog.Key)
	if err != nil {
		return nil, err
	}
	conf, err := din.GetT[*config.Config](c)
	if err != nil {
		return nil, err
	}
	chatService, err := din.GetT[*chat.Service](c)
	if err != nil {
		return nil, err
	}

	return &server{
		logger:  logger,
		chat:    chatService,
		catalog: din.MustGetT[*persona.Catalog](c),
		db:      din.MustGet[*gorm.DB](c, db.Key),
		metrics: din.MustGetT[*metrics.Metrics](c),
		limiter: ratelimit.NewPool(conf.Server.RateLimitRPS, conf.Server.RateLimitBurst),
	}, nil
}

func (s *server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/chat_history", s.handleHistory).Methods("GET")
	api.HandleFunc("/personas", s.handlePersonas).Methods("GET")
	api.HandleFunc("/schema/chat", s.handleChatSchema).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)
	logging := func(h http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	}

	return withRequestID(logging(cors(recovery(router))))
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"endpoints": endpoints,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), s.db); err != nil {
		s.logger.Error("health check failed", mylog.Err(err))
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.HandleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	resp, err := s.chat.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	threads, err := s.chat.History(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, historyResponse{
		UserID:  userID,
		Threads: threads,
	})
}

func (s *server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{
		"personas": s.catalog.Names(),
	})
}

func (s *server) handleChatSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, jsonschema.Reflect(&chat.HandleRequest{}))
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			s.metrics.RateLimited.Inc()
			s.writeError(w, r, errors.Wrapf(errors.ErrRateLimited, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", mylog.Err(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)
	status := statusOf(code)

	detail := err.Error()
	if status >= http.StatusInternalServerError {
		// upstream and storage details stay in the log
		s.logger.Error("request failed",
			"request_id", r.Header.Get(requestIDHeader),
			"code", code,
			mylog.Err(err),
		)
		detail = publicDetail(code)
	}

	s.writeJSON(w, status, errorResponse{Detail: detail, Code: code})
}

func (s *server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
		"request_id", p.Request.Header.Get(requestIDHeader),
	)
}

func statusOf(code string) int {
	switch code {
	case errors.CodeInvalidParams:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeNoActivePersona:
		return http.StatusUnprocessableEntity
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	case errors.CodeModelInvocation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicDetail(code string) string {
	switch code {
	case errors.CodeModelInvocation:
		return "the language model could not produce a reply; nothing was saved"
	case errors.CodeStoreUnavailable:
		return "conversation storage is unavailable"
	default:
		return "internal server error"
	}
}

// withRequestID makes sure every request carries an id, echoing it back to the client.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to shutdown server", mylog.Err(err))
		}
	}()

	logger.Info("server started", "addr", addr)
	defer logger.Info("server stopped")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
