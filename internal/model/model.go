package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatd/internal/logx"
)

// Device selects where model layers run.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceGPU  Device = "gpu"
	DeviceCPU  Device = "cpu"
)

// Spec describes which checkpoint to load and how.
type Spec struct {
	// Hub repository id or local .gguf path/directory.
	ID string
	// GGUF quantization tag (q4_k_m, q8_0, fp16...). Empty picks the hub default.
	Quantization string
	Device       Device
	ContextSize  int
	Threads      int
	// BaseURL attaches to a running llama-server instead of spawning one.
	BaseURL string
	APIKey  string
	// LlamaBin overrides llama-server discovery.
	LlamaBin        string
	MinFreeMemoryMB int
	// SpecialTokens are the chat template's control markers; their ids are
	// dropped when decoding with skipSpecial.
	SpecialTokens []string
	// StartTimeout bounds how long Load waits for the server (model download included).
	StartTimeout time.Duration
}

// GenerationConfig holds sampling parameters for one generate call.
type GenerationConfig struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	// DoSample false means greedy decoding.
	DoSample bool
	Seed     int
}

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(ctx context.Context, text string) ([]int, error)
	Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error)
}

// LM runs causal generation. Generate returns the full sequence: the input
// ids followed by the newly generated ids.
type LM interface {
	Generate(ctx context.Context, input []int, cfg GenerationConfig) ([]int, error)
}

// Model is the process-lifetime tokenizer/LM pair. It is read-only after Load.
type Model struct {
	ID        string
	Tokenizer Tokenizer
	LM        LM

	proc *process
}

// Close stops a spawned llama-server. Attached servers are left running.
func (m *Model) Close() error {
	if m == nil || m.proc == nil {
		return nil
	}
	err := m.proc.stop()
	m.proc = nil
	return err
}

const defaultStartTimeout = 10 * time.Minute

// Load produces a ready tokenizer and model. Any error is meant to be fatal:
// callers should not start serving without a model.
func Load(ctx context.Context, spec Spec) (*Model, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return nil, fmt.Errorf("model id is empty")
	}
	if spec.StartTimeout <= 0 {
		spec.StartTimeout = defaultStartTimeout
	}
	m := &Model{ID: spec.ID}
	baseURL := spec.BaseURL
	if baseURL == "" {
		src, err := Resolve(spec.ID, spec.Quantization)
		if err != nil {
			return nil, err
		}
		if err := CheckMemory(ctx, src, spec.MinFreeMemoryMB); err != nil {
			return nil, err
		}
		proc, err := spawn(ctx, spec, src)
		if err != nil {
			return nil, err
		}
		m.proc = proc
		baseURL = proc.baseURL
	}
	srv := newServerClient(baseURL, spec.APIKey)
	if m.proc == nil {
		if err := srv.waitHealthy(ctx, spec.StartTimeout); err != nil {
			return nil, err
		}
	}
	if err := srv.learnSpecials(ctx, spec.SpecialTokens); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("load special tokens: %w", err)
	}
	props, err := srv.props(ctx)
	if err != nil {
		logx.Log.Debug().Err(err).Msg("llama-server props unavailable")
	}
	logx.Log.Info().Str("model", spec.ID).Str("backend", baseURL).Str("model_path", props.ModelPath).
		Int("n_ctx", props.Settings.NCtx).Int("special_tokens", len(srv.special)).Msg("model loaded")
	m.Tokenizer = srv
	m.LM = srv
	return m, nil
}
