package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeVocab tokenizes each <|...|> marker as one id (1000000+n) and every
// other rune as its code point.
type fakeVocab struct {
	mu       sync.Mutex
	specials []string
}

func (v *fakeVocab) encode(s string) []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int
	for len(s) > 0 {
		if strings.HasPrefix(s, "<|") {
			if end := strings.Index(s, "|>"); end > 0 {
				marker := s[:end+2]
				ids = append(ids, v.specialID(marker))
				s = s[end+2:]
				continue
			}
		}
		r := []rune(s)[0]
		ids = append(ids, int(r))
		s = s[len(string(r)):]
	}
	return ids
}

func (v *fakeVocab) specialID(marker string) int {
	for i, m := range v.specials {
		if m == marker {
			return 1000000 + i
		}
	}
	v.specials = append(v.specials, marker)
	return 1000000 + len(v.specials) - 1
}

func (v *fakeVocab) decode(ids []int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var b strings.Builder
	for _, id := range ids {
		if id >= 1000000 {
			b.WriteString(v.specials[id-1000000])
			continue
		}
		b.WriteRune(rune(id))
	}
	return b.String()
}

// fakeLlamaServer mimics llama-server's /health, /props, /tokenize,
// /detokenize and /completion. Completions answer with reply + <|im_end|>.
type fakeLlamaServer struct {
	*httptest.Server
	vocab    *fakeVocab
	reply    string
	mu       sync.Mutex
	lastComp map[string]any
	healthy  bool
}

func newFakeLlamaServer(t *testing.T, reply string) *fakeLlamaServer {
	t.Helper()
	f := &fakeLlamaServer{vocab: &fakeVocab{}, reply: reply, healthy: true}
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := f.healthy
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"message": "Loading model"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/props", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"model_path": "/models/fake.gguf", "default_generation_settings": map[string]any{"n_ctx": 4096}})
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req tokenizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, tokenizeResponse{Tokens: f.vocab.encode(req.Content)})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req detokenizeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, detokenizeResponse{Content: f.vocab.decode(req.Tokens)})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastComp = req
		f.mu.Unlock()
		toks := f.vocab.encode(f.reply + "<|im_end|>")
		writeJSON(w, http.StatusOK, completionResponse{Content: f.reply, Tokens: toks, StopType: "eos", TokensPredicted: len(toks)})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLlamaServer) lastCompletion() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastComp
}
