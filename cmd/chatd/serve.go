package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"chatd/internal/assistant"
	"chatd/internal/config"
	"chatd/internal/generate"
	"chatd/internal/httpapi"
	"chatd/internal/logx"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, modelID, backendURL, origins string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON chat API",
		Example: "  chatd serve\n" +
			"  chatd serve --addr :8000 --model Qwen/Qwen2.5-1.5B-Instruct\n" +
			"  chatd serve --backend-url http://127.0.0.1:8081",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if addr != "" {
				cfg.API.Addr = addr
			}
			if modelID != "" {
				cfg.API.Model.ID = modelID
			}
			if backendURL != "" {
				cfg.Backend.URL = backendURL
			}
			if origins != "" {
				cfg.API.AllowedOrigins = config.SplitCSV(origins)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default 0.0.0.0:8000)")
	cmd.Flags().StringVar(&modelID, "model", "", "Hub repository or local .gguf path")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "Use a running llama-server instead of spawning one")
	cmd.Flags().StringVar(&origins, "allowed-origins", "", "Comma separated CORS origins (default *)")
	return cmd
}

func runServe(cfg config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, m, err := buildAssistant(ctx, cfg.Backend, variant{
		model:     cfg.API.Model,
		admission: cfg.API.Admission,
		gen:       generate.APIConfig,
		preset:    assistant.NetworkedConfig,
	}, func(c *assistant.Config) {
		c.System = cfg.API.SystemPrompt
		c.Window = cfg.API.HistoryWindow
	})
	if err != nil {
		return err
	}
	defer m.Close()

	mux := httpapi.NewMux(a, httpapi.Options{
		Banner:         cfg.API.Banner,
		ErrorPrefix:    cfg.API.ErrorPrefix,
		AllowedOrigins: cfg.API.AllowedOrigins,
		MaxBodyBytes:   cfg.API.MaxBodyBytes,
		Swagger:        cfg.API.Swagger,
		LogLevel:       requestLogDefault(cfg.Log.Level),
		BaseContext:    ctx,
	})
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logx.Log.Info().Str("model", a.ModelID()).Int("history_window", cfg.API.HistoryWindow).Msg("chat api ready")
	return serveUntilDone(ctx, srv, "chat api")
}

// requestLogDefault maps the process level onto the per-request chat log level.
func requestLogDefault(level string) string {
	switch logx.ParseLevel(level).String() {
	case "trace", "debug":
		return "debug"
	case "error", "fatal", "panic":
		return "error"
	case "disabled":
		return "off"
	default:
		return "info"
	}
}
