package generate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/model"
	"chatd/internal/model/modeltest"
)

const prompt = "<|im_start|>user\nСайн байна уу?<|im_end|>\n<|im_start|>assistant\n"

func TestPresets(t *testing.T) {
	if LocalConfig.MaxNewTokens != 256 || APIConfig.MaxNewTokens != 512 {
		t.Fatalf("max new tokens: local=%d api=%d", LocalConfig.MaxNewTokens, APIConfig.MaxNewTokens)
	}
	for _, c := range []model.GenerationConfig{LocalConfig, APIConfig} {
		if !c.DoSample || c.Temperature != 0.7 || c.TopP != 0.9 {
			t.Fatalf("unexpected sampling: %+v", c)
		}
	}
}

func TestGenerate_ReturnsOnlyContinuation(t *testing.T) {
	tok, lm := modeltest.New("Сайн, сайн байна.")
	iv := New(tok, lm, APIConfig, Options{ModelID: "m"})
	res, err := iv.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Сайн, сайн байна." {
		t.Fatalf("text=%q", res.Text)
	}
	if strings.Contains(res.Text, "Сайн байна уу?") || strings.Contains(res.Text, "<|im_start|>") {
		t.Fatalf("prompt echoed in %q", res.Text)
	}
	if res.PromptTokens == 0 || res.CompletionTokens != len([]rune("Сайн, сайн байна."))+1 {
		t.Fatalf("token counts: %+v", res)
	}
	if got := lm.LastConfig(); got != APIConfig {
		t.Fatalf("config=%+v", got)
	}
	if lm.LastPrompt() != prompt {
		t.Fatalf("prompt reaching the model=%q", lm.LastPrompt())
	}
}

func TestGenerate_EchoIsSlicedByLength(t *testing.T) {
	// The model repeats the prompt text inside its reply; only the prompt ids
	// at the head are removed.
	tok, lm := modeltest.New("")
	lm.Func = func(_ context.Context, in []int, _ model.GenerationConfig) ([]int, error) {
		out := append([]int(nil), in...)
		return append(out, in...), nil
	}
	iv := New(tok, lm, LocalConfig, Options{})
	res, err := iv.Generate(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "abc" || res.CompletionTokens != 3 {
		t.Fatalf("res=%+v", res)
	}
}

func TestGenerate_MalformedOutput(t *testing.T) {
	tok, lm := modeltest.New("")
	lm.Func = func(_ context.Context, in []int, _ model.GenerationConfig) ([]int, error) {
		return in[:len(in)-1], nil
	}
	_, err := New(tok, lm, APIConfig, Options{}).Generate(context.Background(), "hello")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestGenerate_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	tok, lm := modeltest.New("x")
	lm.Err = boom
	if _, err := New(tok, lm, APIConfig, Options{}).Generate(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("generate err=%v", err)
	}
	tok2, lm2 := modeltest.New("x")
	tok2.EncodeErr = boom
	if _, err := New(tok2, lm2, APIConfig, Options{}).Generate(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("encode err=%v", err)
	}
	if lm2.Calls() != 0 {
		t.Fatalf("model ran after encode failure")
	}
}

func TestGenerate_EmptyReply(t *testing.T) {
	tok, lm := modeltest.New("")
	res, err := New(tok, lm, LocalConfig, Options{}).Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "" || res.CompletionTokens != 1 {
		t.Fatalf("res=%+v", res)
	}
}

func TestGenerate_SerializesCalls(t *testing.T) {
	tok, lm := modeltest.New("")
	var mu sync.Mutex
	inflight, maxInflight := 0, 0
	lm.Func = func(_ context.Context, in []int, _ model.GenerationConfig) ([]int, error) {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return in, nil
	}
	iv := New(tok, lm, LocalConfig, Options{MaxQueueDepth: 8, MaxWait: time.Second})
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		go func() {
			_, err := iv.Generate(context.Background(), "x")
			errs <- err
		}()
	}
	for i := 0; i < 6; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if maxInflight != 1 {
		t.Fatalf("max in-flight=%d, want 1", maxInflight)
	}
}

func TestGenerate_TooBusyWhenQueueFull(t *testing.T) {
	tok, lm := modeltest.New("")
	started := make(chan struct{})
	unblock := make(chan struct{})
	lm.Func = func(_ context.Context, in []int, _ model.GenerationConfig) ([]int, error) {
		close(started)
		<-unblock
		return in, nil
	}
	iv := New(tok, lm, LocalConfig, Options{ModelID: "busy", MaxQueueDepth: 1, MaxWait: 20 * time.Millisecond})
	done := make(chan error, 1)
	go func() {
		_, err := iv.Generate(context.Background(), "first")
		done <- err
	}()
	<-started
	_, err := iv.Generate(context.Background(), "second")
	if !IsTooBusy(err) {
		t.Fatalf("expected too busy, got %v", err)
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first: %v", err)
	}
	// capacity is returned after release
	lm.Func = nil
	if _, err := iv.Generate(context.Background(), "third"); err != nil {
		t.Fatalf("third: %v", err)
	}
}

func TestGate_WaitTimeoutOnInflightSlot(t *testing.T) {
	g := newGate("m", 2, 20*time.Millisecond)
	g.genCh <- struct{}{}
	_, err := g.acquire(context.Background())
	if !IsTooBusy(err) {
		t.Fatalf("expected too busy, got %v", err)
	}
	if len(g.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(g.queueCh))
	}
}

func TestGate_CanceledContext(t *testing.T) {
	g := newGate("m", 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	rel, err := g.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	rel()
	if len(g.queueCh) != 0 || len(g.genCh) != 0 {
		t.Fatalf("slots not released")
	}
}

func TestGenerate_EmitsMetrics(t *testing.T) {
	tok, lm := modeltest.New("ok")
	if _, err := New(tok, lm, APIConfig, Options{ModelID: "metrics-model"}).Generate(context.Background(), "hi"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.Bytes()
	for _, name := range []string{"chatd_generation_duration_seconds", "chatd_generation_completion_tokens_total"} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("missing %s in /metrics", name)
		}
	}
}
