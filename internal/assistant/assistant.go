// Package assistant is the chat service shared by every transport. An
// Assistant is built once at startup and is read-only afterwards; handlers
// hold a pointer to it instead of reaching for package globals.
package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chatd/internal/chat"
	"chatd/internal/generate"
	"chatd/internal/logx"
)

const (
	// DefaultSystemPrompt instructs the networked assistant to answer in Mongolian.
	DefaultSystemPrompt = "Та монгол хэл дээр ярьдаг туслах юм. Хэрэглэгчид монгол хэлээр хариулт өгнө үү."
	// DefaultHistoryWindow is how many prior turns the networked variant forwards.
	DefaultHistoryWindow = 10
)

// Generator produces reply text from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (generate.Result, error)
}

// Config describes one assistant.
type Config struct {
	ModelID  string
	Template chat.Template
	// System is prepended to every conversation when non-empty.
	System string
	// Window bounds forwarded history; <= 0 forwards everything.
	Window    int
	Publisher EventPublisher
}

// NetworkedConfig is the JSON API preset: fixed Mongolian system prompt and a
// ten-turn history window.
func NetworkedConfig(modelID string, tmpl chat.Template) Config {
	return Config{ModelID: modelID, Template: tmpl, System: DefaultSystemPrompt, Window: DefaultHistoryWindow}
}

// LocalConfig is the local widget preset: no system prompt, full history.
func LocalConfig(modelID string, tmpl chat.Template) Config {
	return Config{ModelID: modelID, Template: tmpl}
}

// Assistant formats conversations and runs them through a Generator.
type Assistant struct {
	modelID   string
	template  chat.Template
	gen       Generator
	system    string
	window    int
	publisher EventPublisher
}

// New validates cfg and builds an Assistant.
func New(gen Generator, cfg Config) (*Assistant, error) {
	if gen == nil {
		return nil, errors.New("assistant: nil generator")
	}
	if cfg.Template == nil {
		return nil, errors.New("assistant: nil template")
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Assistant{
		modelID:   cfg.ModelID,
		template:  cfg.Template,
		gen:       gen,
		system:    cfg.System,
		window:    cfg.Window,
		publisher: pub,
	}, nil
}

// ModelID is the identifier of the loaded model.
func (a *Assistant) ModelID() string { return a.modelID }

// Prompt renders the prompt Respond would send for message and history.
func (a *Assistant) Prompt(message string, history []chat.Turn) string {
	turns := chat.Build(a.system, history, message, a.window)
	return a.template.Render(turns, true)
}

// Respond answers message given prior turns.
func (a *Assistant) Respond(ctx context.Context, message string, history []chat.Turn) (string, error) {
	id := uuid.NewString()
	prompt := a.Prompt(message, history)
	a.publisher.Publish(Event{Name: EventRespondStart, ID: id, ModelID: a.modelID, Fields: map[string]any{
		"history_turns": len(history),
	}})
	start := time.Now()
	res, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.publisher.Publish(Event{Name: EventRespondError, ID: id, ModelID: a.modelID, Fields: map[string]any{"error": err.Error()}})
		logx.Log.Warn().Str("generation_id", id).Err(err).Msg("respond failed")
		return "", err
	}
	a.publisher.Publish(Event{Name: EventRespondDone, ID: id, ModelID: a.modelID, Fields: map[string]any{
		"prompt_tokens":     res.PromptTokens,
		"completion_tokens": res.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	}})
	logx.Log.Info().Str("generation_id", id).Str("model", a.modelID).
		Int("prompt_tokens", res.PromptTokens).Int("completion_tokens", res.CompletionTokens).
		Dur("took", time.Since(start)).Msg("respond")
	return res.Text, nil
}

// RespondPairs answers message given widget-style (user, assistant) pairs.
func (a *Assistant) RespondPairs(ctx context.Context, message string, pairs [][2]string) (string, error) {
	return a.Respond(ctx, message, chat.FromPairs(pairs))
}
