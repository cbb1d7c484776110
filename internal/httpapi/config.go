package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options configures the networked chat API.
type Options struct {
	// Banner is the human-readable message of GET /.
	Banner string
	// ErrorPrefix is prepended to error text in the chat error envelope.
	ErrorPrefix string
	// AllowedOrigins for CORS. Empty means any origin.
	AllowedOrigins []string
	// MaxBodyBytes limits POST bodies. <= 0 means 1 MiB.
	MaxBodyBytes int64
	// RequestTimeout bounds one chat call. Zero disables the extra deadline.
	RequestTimeout time.Duration
	// Swagger mounts the API docs under /swagger/.
	Swagger bool
	// LogLevel is the default per-request log level (off|error|info|debug).
	LogLevel string
	// Logger receives request logs. Zero value uses logx.Log.
	Logger *zerolog.Logger
	// BaseContext is canceled on shutdown; in-flight generations observe it.
	BaseContext context.Context
}

// DefaultBanner is the GET / message.
const DefaultBanner = "Mongolian Chatbot API is running! 🇲🇳"

// DefaultErrorPrefix reads "an error occurred: " in Mongolian.
const DefaultErrorPrefix = "Алдаа гарлаа: "

func (o Options) withDefaults() Options {
	if o.Banner == "" {
		o.Banner = DefaultBanner
	}
	if o.ErrorPrefix == "" {
		o.ErrorPrefix = DefaultErrorPrefix
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	return o
}
