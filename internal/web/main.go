// Package web serves the authorization service over HTTP.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/config"
	fiberlog "github.com/accessd/accessd/internal/logger/adapter/fiber"
	"github.com/accessd/accessd/internal/web/handler"
	"github.com/accessd/accessd/internal/web/handler/authorization"
	"github.com/accessd/accessd/internal/web/handler/menu"
	"github.com/accessd/accessd/internal/web/handler/permission"
	"github.com/accessd/accessd/internal/web/handler/role"
	"github.com/accessd/accessd/internal/web/handler/user"
)

// APIPrefix is the route group of every authorization endpoint.
const APIPrefix = "/api"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start listens on the configured port and blocks until the server stops.
func (s *Service) Start() error {
	addr := ":" + strconv.Itoa(s.cfg.Webserver.Port)
	doneFiber := make(chan error, 1)

	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")

		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneFiber <- err

			return
		}

		doneFiber <- nil
	}()

	return <-doneFiber
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

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// New creates the fiber application with every route registered.
func New(cfg *config.Config, db *gorm.DB, svc *authz.Service) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil || svc == nil {
		panic("db and authorization service cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ReadTimeout:    cfg.Webserver.ReadTimeout,
			WriteTimeout:   cfg.Webserver.WriteTimeout,
			ErrorHandler:   ErrorHandler,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlog.New(fiberlog.Config{
		Config:            cfg.Log,
		CacheControlError: fiberlog.ConfigDefault.CacheControlError,
		CheckAliveURI:     cfg.Webserver.CheckAliveURI,
		PrincipalHeader:   cfg.Webserver.PrincipalHeader,
	}))

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Get(cfg.Webserver.CheckAliveURI, service.checkAlive)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(APIPrefix, authz.Principal(cfg.Webserver.PrincipalHeader))

	handlers := []handler.Service{
		&authorization.Service{},
		&role.Service{},
		&permission.Service{},
		&menu.Service{},
		&user.Service{},
	}

	for _, h := range handlers {
		if err := h.Init(api, db, svc); err != nil {
			log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
		}
	}

	return service
}
