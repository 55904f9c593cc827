// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelWriter splits logs by level: trace, warn, error and up each get their
// own writer, debug and info share the info writer.
type LevelWriter struct {
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	TraceWriter io.Writer
	WarnWriter  io.Writer
}

// WriteLevel implements zerolog.LevelWriter.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	var w io.Writer

	switch {
	case l == zerolog.Disabled:
		return 0, nil
	case l == zerolog.TraceLevel:
		w = lw.TraceWriter
	case l == zerolog.WarnLevel:
		w = lw.WarnWriter
	case l > zerolog.WarnLevel: // error, fatal and panic
		w = lw.ErrorWriter
	default:
		w = lw.InfoWriter
	}

	if w == nil {
		return len(p), nil
	}

	return w.Write(p) //nolint:wrapcheck
}

// Write sends level-less events to the info writer.
func (lw *LevelWriter) Write(p []byte) (int, error) {
	return lw.WriteLevel(zerolog.InfoLevel, p)
}

// Init the zerolog logger.
// Depending on the config it enables console, file, both or no output at all.
func Init(cfg Log) error {
	logLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("loglevel %s is not supported", cfg.LogLevel))
	}

	if cfg.ServiceName == "" {
		return ErrServiceNameIsEmpty
	}

	if cfg.AppName == "" {
		return ErrAppNameIsEmpty
	}

	// stack traces of pkg/errors are only worth their size at trace level
	stack := logLevel == zerolog.TraceLevel
	if stack {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.ErrorHandler = ErrorHandler

	var writers []io.Writer

	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		fw, errFile := newRollingFileWriter(cfg.File)
		if errFile != nil {
			return errFile
		}

		writers = append(writers, fw)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Hook(NewPrometheusHook(cfg.ServiceName)).
		With().
		Timestamp().
		Str("app", cfg.AppName)

	switch {
	case cfg.ReportCaller && stack:
		ctx = ctx.Stack().Caller()
	case cfg.ReportCaller:
		ctx = ctx.Caller()
	case stack:
		ctx = ctx.Stack()
	}

	log.Logger = ctx.Logger()

	return nil
}

// newRollingFileWriter uses LevelWriter and lumberjack to create file based logs.
func newRollingFileWriter(cfg LogFile) (io.Writer, error) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil { //nolint: mnd
		return nil, errors.Wrapf(err, "can't create log directory %s", cfg.Path)
	}

	return &LevelWriter{
		ErrorWriter: rolling(cfg.Path, cfg.Error),
		InfoWriter:  rolling(cfg.Path, cfg.Info),
		TraceWriter: rolling(cfg.Path, cfg.Trace),
		WarnWriter:  rolling(cfg.Path, cfg.Warn),
	}, nil
}

// rolling returns nil for files without a name so that level is discarded.
func rolling(dir string, f RollingFile) io.Writer {
	if f.Name == "" {
		return nil
	}

	return &lumberjack.Logger{
		Filename:   path.Join(dir, f.Name),
		MaxSize:    f.MaxSize,
		MaxAge:     f.MaxAge,
		MaxBackups: f.MaxBackups,
		LocalTime:  false,
		Compress:   false,
	}
}

// NewConsoleWriter writes info and debug to stdout and everything else to stderr.
func NewConsoleWriter(cfg Log) io.Writer {
	wrap := func(out io.Writer) io.Writer {
		if !cfg.Console.UseConsoleWriter {
			return out
		}

		return zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    false,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	return &LevelWriter{
		ErrorWriter: wrap(os.Stderr),
		InfoWriter:  wrap(os.Stdout),
		TraceWriter: wrap(os.Stderr),
		WarnWriter:  wrap(os.Stderr),
	}
}
