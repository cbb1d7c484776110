// Package generate turns a rendered prompt into the model's reply text.
//
// The model returns the prompt ids followed by the continuation; the invoker
// slices the prompt off by length before decoding, so callers never see their
// own prompt echoed back. Calls are serialized through an admission gate.
package generate

import (
	"context"
	"time"

	"chatd/internal/logx"
	"chatd/internal/model"
)

// Sampling presets. Both variants sample with temperature 0.7 and top-p 0.9;
// they differ only in the new-token budget.
var (
	LocalConfig = model.GenerationConfig{MaxNewTokens: 256, Temperature: 0.7, TopP: 0.9, DoSample: true}
	APIConfig   = model.GenerationConfig{MaxNewTokens: 512, Temperature: 0.7, TopP: 0.9, DoSample: true}
)

// Options configures admission for an Invoker.
type Options struct {
	// ModelID labels logs and metrics.
	ModelID       string
	MaxQueueDepth int
	MaxWait       time.Duration
}

// Result is one completed generation.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}

// Invoker runs generations with a fixed sampling config.
type Invoker struct {
	tok  model.Tokenizer
	lm   model.LM
	cfg  model.GenerationConfig
	id   string
	gate *gate
}

// New builds an Invoker. cfg is fixed for the Invoker's lifetime.
func New(tok model.Tokenizer, lm model.LM, cfg model.GenerationConfig, opts Options) *Invoker {
	return &Invoker{
		tok:  tok,
		lm:   lm,
		cfg:  cfg,
		id:   opts.ModelID,
		gate: newGate(opts.ModelID, opts.MaxQueueDepth, opts.MaxWait),
	}
}

// Config returns the sampling parameters every call uses.
func (iv *Invoker) Config() model.GenerationConfig { return iv.cfg }

// Generate encodes prompt, runs the model and decodes only the new tokens with
// special tokens stripped. It blocks until the full reply is ready.
func (iv *Invoker) Generate(ctx context.Context, prompt string) (Result, error) {
	release, err := iv.gate.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	start := time.Now()
	input, err := iv.tok.Encode(ctx, prompt)
	if err != nil {
		generationErrors.WithLabelValues(iv.id, "encode").Inc()
		return Result{}, err
	}
	full, err := iv.lm.Generate(ctx, input, iv.cfg)
	if err != nil {
		generationErrors.WithLabelValues(iv.id, "generate").Inc()
		return Result{}, err
	}
	if len(full) < len(input) {
		generationErrors.WithLabelValues(iv.id, "slice").Inc()
		return Result{}, malformed(len(input), len(full))
	}
	gen := full[len(input):]
	text, err := iv.tok.Decode(ctx, gen, true)
	if err != nil {
		generationErrors.WithLabelValues(iv.id, "decode").Inc()
		return Result{}, err
	}
	res := Result{
		Text:             text,
		PromptTokens:     len(input),
		CompletionTokens: len(gen),
		Duration:         time.Since(start),
	}
	generationDuration.WithLabelValues(iv.id).Observe(res.Duration.Seconds())
	promptTokensTotal.WithLabelValues(iv.id).Add(float64(res.PromptTokens))
	completionTokensTotal.WithLabelValues(iv.id).Add(float64(res.CompletionTokens))
	logx.Log.Debug().Str("model", iv.id).Int("prompt_tokens", res.PromptTokens).
		Int("completion_tokens", res.CompletionTokens).Dur("took", res.Duration).Msg("generation done")
	return res, nil
}
