package logx

import (
	"io"
	"os"

	"github.com/Chative-core-poc-v1/supportbot/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when set (debug, info, warn, error).
	Level string
	// Output defaults to stdout (JSON) or a console writer on stderr.
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)

	level := zerolog.DebugLevel
	if opts.Environment.IsProduction() || opts.Environment == core.Staging {
		level = zerolog.InfoLevel
	}
	if opts.Level != "" {
		if lvl, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = lvl
		}
	}

	if opts.Environment.IsDevelopment() {
		out := opts.Output
		if out == nil {
			out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })
		}
		log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger().Level(level)
		return
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("env", opts.Environment.String()).Logger().Level(level)
}

// Session returns a child logger that tags every event with the session id.
func Session(sessionID string) *zerolog.Logger {
	l := log.Logger.With().Str("session_id", sessionID).Logger()
	return &l
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
