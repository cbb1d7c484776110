package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"chatd/internal/logx"
	"chatd/internal/tui"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	var modelID, logFile, style string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Chat with the local model in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if modelID != "" {
				cfg.Local.Model.ID = modelID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := tui.CheckTerminal(); err != nil {
				return err
			}
			// The screen owns the terminal; logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			logx.ConfigureWriter(w, cfg.Log.Level, "json")

			ctx, stop := signalContext()
			defer stop()
			a, m, err := buildAssistant(ctx, cfg.Backend, localVariant(cfg), nil)
			if err != nil {
				return err
			}
			defer m.Close()
			return tui.Run(ctx, a, tui.Options{Title: cfg.Local.Title, Style: style})
		},
	}
	cmd.Flags().StringVar(&modelID, "model", "", "Hub repository or local .gguf path")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file while the screen is open")
	cmd.Flags().StringVar(&style, "style", "dark", "Markdown style: dark|light|notty|ascii")
	return cmd
}
