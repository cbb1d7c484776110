// Package webui serves the local chat widget: one HTML page that keeps its own
// (user, assistant) history and posts each turn to /api/respond.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chatd/internal/logx"
	"chatd/pkg/types"
)

//go:embed assets/index.html
var assets embed.FS

var page = template.Must(template.ParseFS(assets, "assets/index.html"))

const respondPath = "/api/respond"

// Responder answers one widget turn.
type Responder interface {
	RespondPairs(ctx context.Context, message string, pairs [][2]string) (string, error)
}

// Options configures the widget page.
type Options struct {
	Title       string
	Description string
	Examples    []string
	// MaxBodyBytes limits /api/respond bodies. <= 0 means 1 MiB.
	MaxBodyBytes int64
	Logger       *zerolog.Logger
}

type pageData struct {
	Title       string
	Description string
	Examples    []string
	RespondPath string
}

// NewMux builds the widget router.
func NewMux(svc Responder, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	lg := opts.Logger
	if lg == nil {
		lg = &logx.Log
	}
	data := pageData{Title: opts.Title, Description: opts.Description, Examples: opts.Examples, RespondPath: respondPath}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, data); err != nil {
			lg.Error().Err(err).Msg("render widget")
		}
	})
	r.Post(respondPath, func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
		var req types.RespondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		reply, err := svc.RespondPairs(r.Context(), req.Message, req.History)
		if err != nil {
			lg.Error().Str("request_id", middleware.GetReqID(r.Context())).Err(err).Msg("respond")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.RespondResponse{Response: reply})
	})
	return r
}

// IsLoopback reports whether addr binds only to a loopback interface.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
