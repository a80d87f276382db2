package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/chat"
	"github.com/ent0n29/lankachat/internal/config"
	"github.com/ent0n29/lankachat/internal/memory"
	"github.com/ent0n29/lankachat/internal/observability"
)

// ChatHandler runs one chat exchange.
type ChatHandler interface {
	Handle(ctx context.Context, msg chat.Message) (chat.Reply, error)
}

// Pinger reports whether the turn store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	chat     ChatHandler
	store    Pinger
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chatHandler ChatHandler, store Pinger, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		chat:    chatHandler,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Post("/chat", s.handleChat)
	r.Get("/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.cfg.AllowedOrigins
	if s.cfg.AllowAnyOrigin {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{exchangeIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients often omit Origin. Allow them.
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "lankachat is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", "turn store is unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

type chatRequest struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

const exchangeIDHeader = "X-Exchange-ID"

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.ObserveChat("http", "invalid")
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.chat.Handle(r.Context(), chat.Message{UID: req.UID, Role: req.Role, Text: req.Text})
	if err != nil {
		status, code, outcome := classifyError(err)
		s.metrics.ObserveChat("http", outcome)
		if status >= http.StatusInternalServerError {
			s.logger.Error("chat request failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			respondError(w, status, code, "could not process chat message")
			return
		}
		respondError(w, status, code, err.Error())
		return
	}

	s.metrics.ObserveChat("http", replyOutcome(reply))
	w.Header().Set(exchangeIDHeader, reply.ExchangeID)
	respondJSON(w, http.StatusOK, chatResponse{Reply: reply.Text})
}

// classifyError maps chat errors to HTTP status, error code and metric outcome.
func classifyError(err error) (int, string, string) {
	var ve *chat.ValidationError
	var se *memory.StorageError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "invalid_" + ve.Field, "invalid"
	case errors.As(err, &se):
		return http.StatusInternalServerError, "storage_error", "storage_error"
	default:
		return http.StatusInternalServerError, "internal_error", "error"
	}
}

func replyOutcome(reply chat.Reply) string {
	if reply.Fallback {
		return "fallback"
	}
	return "ok"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
