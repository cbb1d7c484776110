package model

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"chatd/internal/common/fsutil"
	"chatd/internal/logx"
)

// process is a llama-server started by Load.
type process struct {
	cmd     *exec.Cmd
	baseURL string
	done    chan struct{}
	waitErr error
	stderr  *tailBuffer
}

const spawnHost = "127.0.0.1"

// serverArgs builds the llama-server command line for a resolved source.
func serverArgs(spec Spec, src Source, port int) []string {
	args := []string{"--host", spawnHost, "--port", strconv.Itoa(port)}
	if src.Kind == SourceLocal {
		args = append(args, "-m", src.Ref)
	} else {
		args = append(args, "-hf", src.Ref)
	}
	switch spec.Device {
	case DeviceCPU:
		args = append(args, "-ngl", "0")
	default:
		args = append(args, "-ngl", "999")
	}
	if spec.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(spec.ContextSize))
	}
	if spec.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(spec.Threads))
	}
	if spec.APIKey != "" {
		args = append(args, "--api-key", spec.APIKey)
	}
	return args
}

// spawn starts llama-server on a free loopback port and waits until /health
// answers, the process exits, or spec.StartTimeout elapses.
func spawn(ctx context.Context, spec Spec, src Source) (*process, error) {
	bin := strings.TrimSpace(spec.LlamaBin)
	if bin == "" {
		bin = discoverLlamaBin()
	}
	if bin == "" {
		return nil, ErrDependencyUnavailable("llama-server not found: set backend.llama_bin or install llama.cpp")
	}
	if bin, _ = fsutil.ExpandHome(bin); !fsutil.IsFile(bin) {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("llama-server not found or not a file: %s", bin))
	}
	port, err := pickFreePort(spawnHost)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(bin, serverArgs(spec, src, port)...)
	if src.Kind == SourceLocal {
		cmd.Dir = filepath.Dir(src.Ref)
	}
	p := &process{
		cmd:     cmd,
		baseURL: fmt.Sprintf("http://%s:%d", spawnHost, port),
		done:    make(chan struct{}),
		stderr:  newTailBuffer(4096),
	}
	log := logx.Log.With().Str("component", "llama-server").Int("port", port).Logger()
	cmd.Stdout = &lineWriter{emit: func(line string) { log.Debug().Msg(line) }}
	cmd.Stderr = &lineWriter{emit: func(line string) {
		p.stderr.WriteLine(line)
		log.Debug().Msg(line)
	}}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	log.Info().Int("pid", cmd.Process.Pid).Str("source", src.Ref).Str("url", p.baseURL).Msg("llama-server starting")

	if err := p.waitReady(ctx, spec.StartTimeout); err != nil {
		_ = p.stop()
		return nil, err
	}
	log.Info().Str("url", p.baseURL).Msg("llama-server ready")
	return p, nil
}

func (p *process) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cli := newServerClient(p.baseURL, "")
	for {
		select {
		case <-p.done:
			if p.waitErr != nil {
				return fmt.Errorf("llama-server exited early: %v; stderr tail: %s", p.waitErr, p.stderr.String())
			}
			return fmt.Errorf("llama-server exited before ready: %s", p.baseURL)
		default:
		}
		hctx, hcancel := context.WithTimeout(ctx, time.Second)
		err := cli.healthy(hctx)
		hcancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server not ready in time: %s: %w", p.baseURL, ctx.Err())
		case <-p.done:
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// stop sends SIGTERM and kills the process if it lingers past 2s.
func (p *process) stop() error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	logx.Log.Info().Int("pid", p.cmd.Process.Pid).Msg("llama-server stopped")
	return nil
}

// lineWriter forwards complete lines of process output to emit.
type lineWriter struct {
	buf  []byte
	emit func(string)
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := strings.TrimRight(string(lw.buf[:idx]), "\r"); line != "" {
			lw.emit(line)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// discoverLlamaBin looks for llama-server in common install locations, then PATH.
func discoverLlamaBin() string {
	if p := fsutil.FirstFile(
		"~/apps/llama.cpp/build/bin/llama-server",
		"~/llama.cpp/build/bin/llama-server",
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	); p != "" {
		return p
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}

// tailBuffer keeps the last max bytes of line output.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) WriteLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
