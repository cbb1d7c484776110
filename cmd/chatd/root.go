package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatd/internal/config"
	"chatd/internal/logx"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "chatd",
		Short:         "Chat with a local instruction-tuned LLM over HTTP, a web widget or the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults CHATD_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		if opts.logLevel != "" {
			cfg.Log.Level = opts.logLevel
		}
		if opts.logFormat != "" {
			cfg.Log.Format = opts.logFormat
		}
		opts.cfg = cfg
		logx.Configure(cfg.Log.Level, cfg.Log.Format)
		return nil
	}

	root.AddCommand(newServeCmd(opts), newUICmd(opts), newTUICmd(opts), newVersionCmd())
	return root
}

// loadConfig layers defaults, the optional file and CHATD_* variables.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chatd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "chatd "+version)
			return nil
		},
	}
}
