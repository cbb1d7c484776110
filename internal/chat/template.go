package chat

import (
	"fmt"
	"strings"
)

// Template renders turns into the prompt format a model was trained on.
type Template interface {
	Name() string
	// Render interleaves role markers and content; addGenerationPrompt appends
	// the cue that starts an assistant reply.
	Render(turns []Turn, addGenerationPrompt bool) string
	// SpecialTokens lists control markers that must not reach users.
	SpecialTokens() []string
}

// TemplateByName returns a built-in template.
func TemplateByName(name string) (Template, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "chatml", "qwen":
		return ChatML{DefaultSystem: QwenDefaultSystem}, nil
	case "llama3":
		return Llama3{}, nil
	default:
		return nil, fmt.Errorf("unknown chat template %q", name)
	}
}

// QwenDefaultSystem is injected by Qwen2.5 checkpoints when a conversation has no system turn.
const QwenDefaultSystem = "You are Qwen, created by Alibaba Cloud. You are a helpful assistant."

// ChatML is the <|im_start|>/<|im_end|> format used by Qwen.
type ChatML struct {
	// DefaultSystem is prepended when the first turn is not a system turn.
	DefaultSystem string
}

func (ChatML) Name() string { return "chatml" }

func (t ChatML) Render(turns []Turn, addGenerationPrompt bool) string {
	var b strings.Builder
	if t.DefaultSystem != "" && (len(turns) == 0 || turns[0].Role != RoleSystem) {
		writeChatML(&b, RoleSystem, t.DefaultSystem)
	}
	for _, turn := range turns {
		writeChatML(&b, turn.Role, turn.Content)
	}
	if addGenerationPrompt {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String()
}

func writeChatML(b *strings.Builder, role Role, content string) {
	b.WriteString("<|im_start|>")
	b.WriteString(string(role))
	b.WriteByte('\n')
	b.WriteString(content)
	b.WriteString("<|im_end|>\n")
}

func (ChatML) SpecialTokens() []string {
	return []string{"<|im_start|>", "<|im_end|>", "<|endoftext|>"}
}

// Llama3 is the header-id format used by Llama 3 instruct checkpoints.
type Llama3 struct{}

func (Llama3) Name() string { return "llama3" }

func (Llama3) Render(turns []Turn, addGenerationPrompt bool) string {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, turn := range turns {
		writeLlama3Header(&b, turn.Role)
		b.WriteString(strings.TrimSpace(turn.Content))
		b.WriteString("<|eot_id|>")
	}
	if addGenerationPrompt {
		writeLlama3Header(&b, RoleAssistant)
	}
	return b.String()
}

func writeLlama3Header(b *strings.Builder, role Role) {
	b.WriteString("<|start_header_id|>")
	b.WriteString(string(role))
	b.WriteString("<|end_header_id|>\n\n")
}

func (Llama3) SpecialTokens() []string {
	return []string{"<|begin_of_text|>", "<|start_header_id|>", "<|end_header_id|>", "<|eot_id|>", "<|end_of_text|>"}
}
