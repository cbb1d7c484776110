// Package httpapi is the networked chat API: a status page, a health probe
// and the chat endpoint, plus /metrics and optional Swagger docs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chatd/internal/chat"
	"chatd/internal/generate"
	"chatd/internal/logx"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Respond(ctx context.Context, message string, history []chat.Turn) (string, error)
	ModelID() string
}

var errMessageRequired = errors.New("message is required")

type server struct {
	svc  Service
	opts Options
	log  *zerolog.Logger
	lvl  LogLevel
}

// NewMux builds the router. The chat handler never lets an error escape as
// anything other than the JSON error envelope.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.withDefaults()
	s := &server{svc: svc, opts: opts, log: opts.Logger, lvl: parseLevel(opts.LogLevel)}
	if s.log == nil {
		s.log = &logx.Log
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if opts.Swagger {
		MountSwagger(r)
	}
	return r
}

// handleInfo godoc
// @Summary      Service status
// @Description  Status, route directory, active model and a usage example.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.InfoResponse
// @Router       / [get]
func (s *server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.InfoResponse{
		Status:  "online",
		Message: s.opts.Banner,
		Endpoints: map[string]string{
			"/":       "GET - This page",
			"/chat":   "POST - Send chat messages",
			"/health": "GET - Check server health",
		},
		Model: s.svc.ModelID(),
		Usage: types.Usage{Example: types.UsageExample{
			URL:    "/chat",
			Method: http.MethodPost,
			Body:   types.ChatRequest{Message: "Сайн байна уу?", History: []types.Turn{}},
		}},
	})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Always healthy once the process serves requests.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Model: s.svc.ModelID()})
}

// handleChat godoc
// @Summary      Chat with the assistant
// @Description  Answers message given prior turns. Only the most recent turns are forwarded.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest   true  "Message and history"
// @Success      200      {object}  types.ChatResponse
// @Failure      500      {object}  types.ChatResponse
// @Router       /chat [post]
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	lg := newChatLog(s.log, r, s.lvl)
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			s.fail(w, lg, "content_type", errors.New("content type must be application/json"))
			return
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, lg, "bad_request", fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if req.Message == "" {
		s.fail(w, lg, "bad_request", errMessageRequired)
		return
	}
	lg.begin(len(req.History), len(req.Message))
	lg.debugPrompt(req.Message)

	history := make([]chat.Turn, len(req.History))
	for i, t := range req.History {
		history[i] = chat.Turn{Role: chat.Role(t.Role), Content: t.Content}
	}

	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	if s.opts.RequestTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer tcancel()
	}
	reply, err := s.svc.Respond(ctx, req.Message, history)
	if err != nil {
		reason := "generation"
		switch {
		case generate.IsTooBusy(err):
			reason = "busy"
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			reason = "canceled"
		}
		s.fail(w, lg, reason, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: reply, Status: types.StatusSuccess})
	lg.end(http.StatusOK, nil)
}

func (s *server) fail(w http.ResponseWriter, lg chatLog, reason string, err error) {
	incChatError(reason)
	writeChatError(w, s.opts.ErrorPrefix, err)
	lg.end(http.StatusInternalServerError, err)
}
