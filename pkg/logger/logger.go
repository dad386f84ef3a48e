package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Format is FormatJSON or FormatConsole. Empty falls back to STOREFRONT_LOG_FORMAT.
	Format    string
	WarnStack bool
	Output    io.Writer
}

// Logger wraps zerolog. Request fields are carried on the context so that
// handlers, services and repositories log with the same scope.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type scopeKey struct{}

type scope struct {
	entry     zerolog.Logger
	requestID string
}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = os.Getenv("STOREFRONT_LOG_FORMAT")
	}
	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	base := zerolog.New(output).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{base: base, warnStack: opts.WarnStack}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// ParseLevel maps a config string onto a level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// RequestID returns the id bound by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if s, ok := scopeFrom(ctx); ok {
		return s.requestID
	}
	return ""
}

func scopeFrom(ctx context.Context) (scope, bool) {
	if ctx == nil {
		return scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(scope)
	return s, ok
}

func (l *Logger) current(ctx context.Context) (scope, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s, ok := scopeFrom(ctx); ok {
		return s, ctx
	}
	return scope{entry: l.base}, ctx
}

func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	s, _ := l.current(ctx)
	return &s.entry
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	s, ctx := l.current(ctx)
	s.entry = s.entry.With().Interface(key, value).Logger()
	return context.WithValue(ctx, scopeKey{}, s)
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	s, ctx := l.current(ctx)
	if len(fields) == 0 {
		return ctx
	}
	s.entry = s.entry.With().Fields(fields).Logger()
	return context.WithValue(ctx, scopeKey{}, s)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	s, ctx := l.current(ctx)
	s.entry = s.entry.With().Str("request_id", requestID).Logger()
	s.requestID = requestID
	return context.WithValue(ctx, scopeKey{}, s)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.entry(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.entry(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.entry(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

// Error always records a stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.entry(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
