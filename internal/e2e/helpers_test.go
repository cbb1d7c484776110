package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chatd/internal/assistant"
	"chatd/internal/chat"
	"chatd/internal/generate"
	"chatd/internal/httpapi"
	"chatd/internal/model"
	"chatd/internal/model/modeltest"
	"chatd/internal/webui"
)

// fakeBackend speaks the llama-server token endpoints over the modeltest
// tokenizer and answers every completion with a fixed reply.
type fakeBackend struct {
	*httptest.Server
	tok *modeltest.Tokenizer

	mu      sync.Mutex
	reply   string
	delay   time.Duration
	fail    bool
	prompts []string
}

func newFakeBackend(t *testing.T, reply string) *fakeBackend {
	t.Helper()
	f := &fakeBackend{tok: &modeltest.Tokenizer{}, reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids, _ := f.tok.Encode(r.Context(), req.Content)
		writeJSON(w, map[string]any{"tokens": ids})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int `json:"tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		text, _ := f.tok.Decode(r.Context(), req.Tokens, false)
		writeJSON(w, map[string]any{"content": text})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt []int `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt, _ := f.tok.Decode(r.Context(), req.Prompt, false)
		f.mu.Lock()
		f.prompts = append(f.prompts, prompt)
		reply, delay, fail := f.reply, f.delay, f.fail
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"kv cache full"}}`))
			return
		}
		ids, _ := f.tok.Encode(r.Context(), reply+"<|im_end|>")
		writeJSON(w, map[string]any{"content": reply, "tokens": ids, "stop_type": "eos", "tokens_predicted": len(ids)})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeBackend) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeBackend) setDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *fakeBackend) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type stackOptions struct {
	local         bool
	maxQueueDepth int
	maxWait       time.Duration
}

// loadAssistant attaches to the backend through model.Load and wires the
// same layers the chatd binary does.
func loadAssistant(t *testing.T, backend *fakeBackend, so stackOptions) *assistant.Assistant {
	t.Helper()
	tmpl := chat.ChatML{DefaultSystem: chat.QwenDefaultSystem}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := model.Load(ctx, model.Spec{
		ID:            "Qwen/Qwen2.5-1.5B-Instruct",
		BaseURL:       backend.URL,
		SpecialTokens: tmpl.SpecialTokens(),
		StartTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("model.Load: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	gen, preset := generate.APIConfig, assistant.NetworkedConfig
	if so.local {
		gen, preset = generate.LocalConfig, assistant.LocalConfig
	}
	inv := generate.New(m.Tokenizer, m.LM, gen, generate.Options{
		ModelID:       m.ID,
		MaxQueueDepth: so.maxQueueDepth,
		MaxWait:       so.maxWait,
	})
	a, err := assistant.New(inv, preset(m.ID, tmpl))
	if err != nil {
		t.Fatalf("assistant.New: %v", err)
	}
	return a
}

func newAPIServer(t *testing.T, backend *fakeBackend, so stackOptions) *httptest.Server {
	t.Helper()
	a := loadAssistant(t, backend, so)
	srv := httptest.NewServer(httpapi.NewMux(a, httpapi.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func newWebUIServer(t *testing.T, backend *fakeBackend) *httptest.Server {
	t.Helper()
	a := loadAssistant(t, backend, stackOptions{local: true})
	srv := httptest.NewServer(webui.NewMux(a, webui.Options{Title: "chatd"}))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
