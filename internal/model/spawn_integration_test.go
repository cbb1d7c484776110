//go:build integration

package model

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func buildTestdata(t *testing.T, name string) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), strings.TrimSuffix(name, ".go"))
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/"+name)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s: %v: %s", name, err, string(out))
	}
	return bin
}

func localModel(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tiny-q4_k_m.gguf")
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

func TestLoad_SpawnsAndStopsServer(t *testing.T) {
	bin := buildTestdata(t, "fake_llama_server.go")
	m, err := Load(testCtx(t), Spec{
		ID:            localModel(t),
		Device:        DeviceCPU,
		LlamaBin:      bin,
		SpecialTokens: []string{"<|im_start|>", "<|im_end|>"},
		StartTimeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ids, err := m.Tokenizer.Encode(testCtx(t), "<|im_start|>user\nhi<|im_end|>\n")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	full, err := m.LM.Generate(testCtx(t), ids, GenerationConfig{MaxNewTokens: 8})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	text, err := m.Tokenizer.Decode(testCtx(t), full[len(ids):], true)
	if err != nil || text != "fake reply" {
		t.Fatalf("Decode=%q err=%v", text, err)
	}
	proc := m.proc
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-proc.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("llama-server still running after Close")
	}
}

func TestLoad_EarlyExitReportsStderr(t *testing.T) {
	bin := buildTestdata(t, "exit_1.go")
	_, err := Load(testCtx(t), Spec{ID: localModel(t), LlamaBin: bin, StartTimeout: 10 * time.Second})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "invalid magic") {
		t.Fatalf("stderr tail missing from %v", err)
	}
}
