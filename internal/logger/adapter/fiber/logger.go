// Package fiber provides a zerolog based access log middleware for fiber.
package fiber

import (
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scopeguard/scopeguard/internal/logger"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// LocalRequestID is the fiber.Locals key holding the request id.
const LocalRequestID = "requestid"

// Config implements fiber middleware struct.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Config of the logger.
	Config logger.Log

	// CacheControlError max-age caching on chain errors.
	CacheControlError string

	// CheckAliveURI for disabling logging of check alive http calls.
	CheckAliveURI string

	// Output overrides the writers derived from Config. Used by tests.
	Output io.Writer
}

// ConfigDefault is the default config for fiber.
var ConfigDefault = Config{ //nolint:gochecknoglobals
	Next:              nil,
	CacheControlError: "max-age=0",
	CheckAliveURI:     "/checkalive",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.CacheControlError == "" {
		cfg.CacheControlError = ConfigDefault.CacheControlError
	}

	if cfg.CheckAliveURI == "" {
		cfg.CheckAliveURI = ConfigDefault.CheckAliveURI
	}

	return cfg
}

func accessWriters(cfg Config) []io.Writer {
	if cfg.Output != nil {
		return []io.Writer{cfg.Output}
	}

	var writers []io.Writer

	if cfg.Config.File.Enabled && cfg.Config.File.Access.Name != "" {
		if err := os.MkdirAll(cfg.Config.File.Path, 0o750); err == nil { //nolint: mnd
			writers = append(writers, &lumberjack.Logger{
				Filename:   path.Join(cfg.Config.File.Path, cfg.Config.File.Access.Name),
				MaxSize:    cfg.Config.File.Access.MaxSize,
				MaxAge:     cfg.Config.File.Access.MaxAge,
				MaxBackups: cfg.Config.File.Access.MaxBackups,
			})
		}
	}

	if cfg.Config.Console.Enabled && cfg.Config.EnableAccessLogToConsole {
		if cfg.Config.Console.UseConsoleWriter {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:          os.Stdout,
				TimeFormat:   zerolog.TimeFieldFormat,
				PartsExclude: []string{"level"},
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	return writers
}

// New creates a fiber access logging middleware using zerolog.
// Every request gets a request id (taken from X-Request-ID when present),
// stored in fiber.Locals and echoed in the response.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	accessLogger := zerolog.New(zerolog.MultiLevelWriter(accessWriters(cfg)...)).
		With().
		Timestamp().
		Logger().
		Level(zerolog.NoLevel)

	return func(ctx *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(ctx) {
			return ctx.Next()
		}

		requestID := ctx.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx.Locals(LocalRequestID, requestID)
		ctx.Set(HeaderRequestID, requestID)

		start := time.Now()

		chainErr := ctx.Next()
		if chainErr != nil {
			if errH := ctx.App().ErrorHandler(ctx, chainErr); errH != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck // ok here
				ctx.Response().Header.Set(fiber.HeaderCacheControl, cfg.CacheControlError)
			}
		}

		elapsed := time.Since(start).Seconds()
		ctx.Set("X-Performance", strconv.FormatFloat(elapsed, 'f', 6, 64))

		if cfg.Config.DisableCheckAlive && ctx.Path() == cfg.CheckAliveURI {
			return nil
		}

		// fasthttp normalizes the path; log what was asked for including the query.
		p := ctx.Path()
		if len(ctx.Queries()) > 0 {
			p = p + "?" + string(ctx.Request().URI().QueryString())
		}

		event := accessLogger.Log().
			Str("request_id", requestID).
			Str("IP", ctx.IP()).
			Int("status", ctx.Response().StatusCode()).
			Float64("X-Performance", elapsed).
			Str("URI", p).
			Str("method", ctx.Method()).
			Str("tenant", ctx.Params("tenant")).
			Str("actor", ctx.Get("X-Actor")).
			Str(fiber.HeaderUserAgent, ctx.Get(fiber.HeaderUserAgent))

		if chainErr != nil {
			event.Err(chainErr)
		}

		event.Send()

		return nil
	}
}
