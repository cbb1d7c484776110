// Package modeltest provides in-memory Tokenizer and LM implementations for
// tests that should not need a llama-server.
package modeltest

import (
	"context"
	"strings"
	"sync"

	"chatd/internal/model"
)

const specialBase = 1000000

// Tokenizer maps every rune to its code point and every <|...|> marker to a
// single id at or above 1000000. Markers get ids in first-seen order.
type Tokenizer struct {
	mu       sync.Mutex
	specials []string
	// EncodeErr and DecodeErr, when set, are returned by the matching call.
	EncodeErr error
	DecodeErr error
}

func (t *Tokenizer) Encode(_ context.Context, text string) ([]int, error) {
	if t.EncodeErr != nil {
		return nil, t.EncodeErr
	}
	return t.ids(text), nil
}

func (t *Tokenizer) Decode(_ context.Context, ids []int, skipSpecial bool) (string, error) {
	if t.DecodeErr != nil {
		return "", t.DecodeErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, id := range ids {
		if id >= specialBase {
			if !skipSpecial && id-specialBase < len(t.specials) {
				b.WriteString(t.specials[id-specialBase])
			}
			continue
		}
		b.WriteRune(rune(id))
	}
	return b.String(), nil
}

func (t *Tokenizer) ids(s string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []int
	for len(s) > 0 {
		if strings.HasPrefix(s, "<|") {
			if end := strings.Index(s, "|>"); end > 0 {
				out = append(out, t.special(s[:end+2]))
				s = s[end+2:]
				continue
			}
		}
		r := []rune(s)[0]
		out = append(out, int(r))
		s = s[len(string(r)):]
	}
	return out
}

func (t *Tokenizer) special(marker string) int {
	for i, m := range t.specials {
		if m == marker {
			return specialBase + i
		}
	}
	t.specials = append(t.specials, marker)
	return specialBase + len(t.specials) - 1
}

// LM answers every call with its input followed by Reply and an end marker.
type LM struct {
	Tok   *Tokenizer
	Reply string
	// EOS is appended after Reply; defaults to <|im_end|>.
	EOS string
	Err error
	// Func overrides the default behaviour when set.
	Func func(ctx context.Context, input []int, cfg model.GenerationConfig) ([]int, error)

	mu        sync.Mutex
	calls     int
	lastInput []int
	lastCfg   model.GenerationConfig
}

// New returns a tokenizer and an LM that share it.
func New(reply string) (*Tokenizer, *LM) {
	tok := &Tokenizer{}
	return tok, &LM{Tok: tok, Reply: reply}
}

func (l *LM) Generate(ctx context.Context, input []int, cfg model.GenerationConfig) ([]int, error) {
	l.mu.Lock()
	l.calls++
	l.lastInput = append([]int(nil), input...)
	l.lastCfg = cfg
	l.mu.Unlock()
	if l.Func != nil {
		return l.Func(ctx, input, cfg)
	}
	if l.Err != nil {
		return nil, l.Err
	}
	eos := l.EOS
	if eos == "" {
		eos = "<|im_end|>"
	}
	out := append([]int(nil), input...)
	return append(out, l.Tok.ids(l.Reply+eos)...), nil
}

// Calls reports how many times Generate ran.
func (l *LM) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// LastPrompt decodes the most recent input, special markers included.
func (l *LM) LastPrompt() string {
	l.mu.Lock()
	in := l.lastInput
	l.mu.Unlock()
	s, _ := l.Tok.Decode(context.Background(), in, false)
	return s
}

// LastConfig returns the sampling config of the most recent call.
func (l *LM) LastConfig() model.GenerationConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCfg
}
