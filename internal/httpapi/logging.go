package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// requestLogLevel applies the ?log= and X-Log-Level overrides on top of def.
func requestLogLevel(r *http.Request, def LogLevel) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return def
}

// chatLog writes the start/end lines of a chat request at the request's level.
type chatLog struct {
	z     *zerolog.Logger
	lvl   LogLevel
	rid   string
	start time.Time
}

func newChatLog(z *zerolog.Logger, r *http.Request, def LogLevel) chatLog {
	return chatLog{z: z, lvl: requestLogLevel(r, def), rid: middleware.GetReqID(r.Context()), start: time.Now()}
}

func (l chatLog) begin(historyLen, messageLen int) {
	if l.lvl < LevelInfo {
		return
	}
	l.z.Info().Str("request_id", l.rid).Int("history", historyLen).Int("message_len", messageLen).Msg("chat start")
}

func (l chatLog) debugPrompt(message string) {
	if l.lvl < LevelDebug {
		return
	}
	l.z.Debug().Str("request_id", l.rid).Str("message", message).Msg("chat message")
}

func (l chatLog) end(status int, err error) {
	switch {
	case err != nil && l.lvl >= LevelError:
		l.z.Error().Str("request_id", l.rid).Int("status", status).Dur("dur", time.Since(l.start)).Err(err).Msg("chat end")
	case err == nil && l.lvl >= LevelInfo:
		l.z.Info().Str("request_id", l.rid).Int("status", status).Dur("dur", time.Since(l.start)).Msg("chat end")
	}
}
