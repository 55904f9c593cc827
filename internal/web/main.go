package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/scopeguard/scopeguard/internal/config"
	fiberlogger "github.com/scopeguard/scopeguard/internal/logger/adapter/fiber"
	"github.com/scopeguard/scopeguard/internal/web/handler"
	"github.com/scopeguard/scopeguard/internal/web/handler/assignment"
	"github.com/scopeguard/scopeguard/internal/web/handler/decision"
	"github.com/scopeguard/scopeguard/internal/web/handler/system"
	"github.com/scopeguard/scopeguard/internal/web/middleware/actor"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes prometheus metrics.
	MetricsPath = "/metrics"
	// DefaultReadBufferSize is used when the config leaves it zero.
	DefaultReadBufferSize = 8192
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and stops the server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether /checkalive answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, deps *handler.Deps) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if deps == nil {
		panic("deps cannot be nil")
	}

	readBufferSize := cfg.Webserver.ReadBufferSize
	if readBufferSize == 0 {
		readBufferSize = DefaultReadBufferSize
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: readBufferSize,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.Alive() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
		}

		return c.SendString("OK")
	})
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(handler.APIPrefix, actor.Middleware)
	tenants := api.Group(handler.TenantPath)

	// init handlers (they register their own routes)
	for _, register := range []func() error{
		func() error { return assignment.Handler.Init(tenants, deps) },
		func() error { return decision.Handler.Init(tenants, deps) },
		func() error { return system.Handler.Init(api, deps) },
	} {
		if err := register(); err != nil {
			log.Fatal().Err(err).Msg("failed to init web handler")
		}
	}

	return service
}
