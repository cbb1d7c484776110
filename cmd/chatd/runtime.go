package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatd/internal/assistant"
	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/generate"
	"chatd/internal/logx"
	"chatd/internal/model"
)

const shutdownTimeout = 5 * time.Second

// variant is what differs between the networked and local assistants.
type variant struct {
	model     config.ModelConfig
	admission config.AdmissionConfig
	gen       model.GenerationConfig
	preset    func(modelID string, tmpl chat.Template) assistant.Config
}

func modelSpec(b config.BackendConfig, m config.ModelConfig, tmpl chat.Template) model.Spec {
	return model.Spec{
		ID:              m.ID,
		Quantization:    m.Quantization,
		Device:          model.Device(strings.ToLower(m.Device)),
		ContextSize:     m.ContextSize,
		Threads:         b.Threads,
		BaseURL:         b.URL,
		APIKey:          b.APIKey,
		LlamaBin:        b.LlamaBin,
		MinFreeMemoryMB: b.MinFreeMemoryMB,
		SpecialTokens:   tmpl.SpecialTokens(),
		StartTimeout:    time.Duration(b.StartTimeoutSeconds) * time.Second,
	}
}

// buildAssistant loads the model once and wires it into an Assistant. The
// returned Model must be closed on exit.
func buildAssistant(ctx context.Context, b config.BackendConfig, v variant, tune func(*assistant.Config)) (*assistant.Assistant, *model.Model, error) {
	tmpl, err := chat.TemplateByName(v.model.Template)
	if err != nil {
		return nil, nil, err
	}
	m, err := model.Load(ctx, modelSpec(b, v.model, tmpl))
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", v.model.ID, err)
	}
	inv := generate.New(m.Tokenizer, m.LM, v.gen, generate.Options{
		ModelID:       m.ID,
		MaxQueueDepth: v.admission.MaxQueueDepth,
		MaxWait:       time.Duration(v.admission.MaxWaitSeconds) * time.Second,
	})
	acfg := v.preset(m.ID, tmpl)
	if tune != nil {
		tune(&acfg)
	}
	a, err := assistant.New(inv, acfg)
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return a, m, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serveUntilDone runs srv until ctx is canceled, then shuts it down within
// shutdownTimeout.
func serveUntilDone(ctx context.Context, srv *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		logx.Log.Info().Str("addr", srv.Addr).Msgf("%s listening", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logx.Log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logx.Log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return <-errCh
}
