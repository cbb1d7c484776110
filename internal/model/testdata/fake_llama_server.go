package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// vocab maps each <|...|> marker to one id at or above 1000000 and every
// other rune to its code point.
type vocab struct {
	mu       sync.Mutex
	specials []string
}

func (v *vocab) encode(s string) []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int
	for len(s) > 0 {
		if strings.HasPrefix(s, "<|") {
			if end := strings.Index(s, "|>"); end > 0 {
				marker := s[:end+2]
				id := -1
				for i, m := range v.specials {
					if m == marker {
						id = 1000000 + i
					}
				}
				if id < 0 {
					v.specials = append(v.specials, marker)
					id = 1000000 + len(v.specials) - 1
				}
				ids = append(ids, id)
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

func (v *vocab) decode(ids []int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var b strings.Builder
	for _, id := range ids {
		if id >= 1000000 && id-1000000 < len(v.specials) {
			b.WriteString(v.specials[id-1000000])
			continue
		}
		b.WriteRune(rune(id))
	}
	return b.String()
}

func main() {
	var model, hf, host, port, apiKey string
	var ngl, ctxSize, threads int
	// Accept the llama-server flags chatd passes
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&hf, "hf", "", "hub repo")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.StringVar(&apiKey, "api-key", "", "api key")
	flag.IntVar(&ngl, "ngl", 0, "gpu layers")
	flag.IntVar(&ctxSize, "c", 0, "context size")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.Parse()

	fmt.Fprintf(os.Stderr, "fake llama-server: model=%q hf=%q ngl=%d\n", model, hf, ngl)
	v := &vocab{}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/props", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"model_path": model + hf, "default_generation_settings": map[string]any{"n_ctx": ctxSize}})
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{"tokens": v.encode(req.Content)})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int `json:"tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{"content": v.decode(req.Tokens)})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		toks := v.encode("fake reply<|im_end|>")
		writeJSON(w, map[string]any{"content": "fake reply", "tokens": toks, "stop_type": "eos", "tokens_predicted": len(toks)})
	})

	srv := &http.Server{Addr: fmt.Sprintf("%s:%s", host, port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for SIGTERM then shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
