package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"chatd/internal/assistant"
	"chatd/internal/config"
	"chatd/internal/generate"
	"chatd/internal/logx"
	"chatd/internal/webui"
)

func newUICmd(root *rootOptions) *cobra.Command {
	var addr, modelID, quant string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run the local chat widget in the browser",
		Example: "  chatd ui\n" +
			"  chatd ui --model ~/models/qwen2.5-3b-instruct-q4_k_m.gguf",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if addr != "" {
				cfg.Local.Addr = addr
			}
			if modelID != "" {
				cfg.Local.Model.ID = modelID
			}
			if quant != "" {
				cfg.Local.Model.Quantization = quant
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runUI(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default 127.0.0.1:7860)")
	cmd.Flags().StringVar(&modelID, "model", "", "Hub repository or local .gguf path")
	cmd.Flags().StringVar(&quant, "quantization", "", "GGUF quantization tag (default q4_k_m)")
	return cmd
}

func localVariant(cfg config.Config) variant {
	return variant{
		model:     cfg.Local.Model,
		admission: cfg.Local.Admission,
		gen:       generate.LocalConfig,
		preset:    assistant.LocalConfig,
	}
}

func runUI(cfg config.Config) error {
	if !webui.IsLoopback(cfg.Local.Addr) {
		logx.Log.Warn().Str("addr", cfg.Local.Addr).Msg("local widget bound to a non-loopback address")
	}
	ctx, stop := signalContext()
	defer stop()

	a, m, err := buildAssistant(ctx, cfg.Backend, localVariant(cfg), nil)
	if err != nil {
		return err
	}
	defer m.Close()

	srv := &http.Server{
		Addr: cfg.Local.Addr,
		Handler: webui.NewMux(a, webui.Options{
			Title:       cfg.Local.Title,
			Description: cfg.Local.Description,
			Examples:    cfg.Local.Examples,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logx.Log.Info().Str("model", a.ModelID()).Str("url", "http://"+cfg.Local.Addr).Msg("chat widget ready")
	return serveUntilDone(ctx, srv, "chat widget")
}
