package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/internal/assistant"
	"chatd/internal/httpapi"
)

// ModelConfig selects the checkpoint and how it is placed.
type ModelConfig struct {
	// Hub repository id (e.g. Qwen/Qwen2.5-3B-Instruct) or a local .gguf file or directory.
	ID string `json:"id" yaml:"id" toml:"id"`
	// GGUF quantization tag such as q4_k_m or f16; empty uses the hub default.
	Quantization string `json:"quantization" yaml:"quantization" toml:"quantization"`
	// auto, gpu or cpu.
	Device string `json:"device" yaml:"device" toml:"device"`
	// Chat template name: chatml or llama3.
	Template    string `json:"template" yaml:"template" toml:"template"`
	ContextSize int    `json:"context_size" yaml:"context_size" toml:"context_size"`
}

// BackendConfig describes the llama-server runtime shared by both variants.
type BackendConfig struct {
	// URL of an already running llama-server. When empty one is spawned.
	URL    string `json:"url" yaml:"url" toml:"url"`
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// Path to the llama-server binary; discovered when empty.
	LlamaBin            string `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	Threads             int    `json:"threads" yaml:"threads" toml:"threads"`
	StartTimeoutSeconds int    `json:"start_timeout_seconds" yaml:"start_timeout_seconds" toml:"start_timeout_seconds"`
	// Refuse to start when less host memory than this is available (0 disables the floor).
	MinFreeMemoryMB int `json:"min_free_memory_mb" yaml:"min_free_memory_mb" toml:"min_free_memory_mb"`
}

// AdmissionConfig bounds how many chat calls may wait for the model.
type AdmissionConfig struct {
	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
}

// APIConfig configures the networked variant (chatd serve).
type APIConfig struct {
	Addr          string      `json:"addr" yaml:"addr" toml:"addr"`
	Model         ModelConfig `json:"model" yaml:"model" toml:"model"`
	SystemPrompt  string      `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	// Prior turns forwarded to the model; at least 1.
	HistoryWindow int         `json:"history_window" yaml:"history_window" toml:"history_window"`
	// Prefix of the user-facing error string in the error envelope.
	ErrorPrefix    string          `json:"error_prefix" yaml:"error_prefix" toml:"error_prefix"`
	Banner         string          `json:"banner" yaml:"banner" toml:"banner"`
	AllowedOrigins []string        `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	MaxBodyBytes   int64           `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Admission      AdmissionConfig `json:"admission" yaml:"admission" toml:"admission"`
	Swagger        bool            `json:"swagger" yaml:"swagger" toml:"swagger"`
}

// LocalConfig configures the local interactive variant (chatd ui / chatd tui).
type LocalConfig struct {
	Addr        string          `json:"addr" yaml:"addr" toml:"addr"`
	Model       ModelConfig     `json:"model" yaml:"model" toml:"model"`
	Title       string          `json:"title" yaml:"title" toml:"title"`
	Description string          `json:"description" yaml:"description" toml:"description"`
	Examples    []string        `json:"examples" yaml:"examples" toml:"examples"`
	Admission   AdmissionConfig `json:"admission" yaml:"admission" toml:"admission"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Config holds runtime parameters for chatd.
type Config struct {
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
	Backend BackendConfig `json:"backend" yaml:"backend" toml:"backend"`
	API     APIConfig     `json:"api" yaml:"api" toml:"api"`
	Local   LocalConfig   `json:"local" yaml:"local" toml:"local"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Backend: BackendConfig{
			StartTimeoutSeconds: 600,
		},
		API: APIConfig{
			Addr: "0.0.0.0:8000",
			Model: ModelConfig{
				ID:       "Qwen/Qwen2.5-1.5B-Instruct",
				Device:   "auto",
				Template: "chatml",
			},
			SystemPrompt:   assistant.DefaultSystemPrompt,
			HistoryWindow:  assistant.DefaultHistoryWindow,
			ErrorPrefix:    httpapi.DefaultErrorPrefix,
			Banner:         httpapi.DefaultBanner,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
			Admission:      AdmissionConfig{MaxQueueDepth: 32, MaxWaitSeconds: 300},
			Swagger:        true,
		},
		Local: LocalConfig{
			Addr: "127.0.0.1:7860",
			Model: ModelConfig{
				ID:           "Qwen/Qwen2.5-3B-Instruct",
				Quantization: "q4_k_m",
				Device:       "auto",
				Template:     "chatml",
			},
			Title:       "Qwen2.5-3B Chatbot",
			Description: "Local chatbot powered by Qwen2.5-3B-Instruct (Optimized)",
			Examples:    []string{"Hello!", "What is AI?", "Write a short story."},
			Admission:   AdmissionConfig{MaxQueueDepth: 8, MaxWaitSeconds: 300},
		},
	}
}

// Load reads a configuration file on top of Defaults based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays CHATD_* environment variables onto c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CHATD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHATD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CHATD_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("CHATD_UI_ADDR"); v != "" {
		c.Local.Addr = v
	}
	if v := os.Getenv("CHATD_MODEL"); v != "" {
		c.API.Model.ID = v
		c.Local.Model.ID = v
	}
	if v := os.Getenv("CHATD_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("CHATD_BACKEND_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("CHATD_LLAMA_BIN"); v != "" {
		c.Backend.LlamaBin = v
	}
	if v := os.Getenv("CHATD_START_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.StartTimeoutSeconds = n
		}
	}
	if v := os.Getenv("CHATD_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.HistoryWindow = n
		}
	}
	if v := os.Getenv("CHATD_ALLOWED_ORIGINS"); v != "" {
		c.API.AllowedOrigins = SplitCSV(v)
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.API.HistoryWindow < 1 {
		return fmt.Errorf("api.history_window must be >= 1, got %d", c.API.HistoryWindow)
	}
	if strings.TrimSpace(c.API.SystemPrompt) == "" {
		return fmt.Errorf("api.system_prompt must not be empty")
	}
	for _, m := range []ModelConfig{c.API.Model, c.Local.Model} {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("model id is required")
		}
		switch strings.ToLower(m.Device) {
		case "", "auto", "gpu", "cpu":
		default:
			return fmt.Errorf("unknown device %q (want auto, gpu or cpu)", m.Device)
		}
	}
	return nil
}

// SplitCSV splits a comma separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
