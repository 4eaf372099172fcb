package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
	"github.com/iliyamo/pilates-studio-booking/internal/config"
	"github.com/iliyamo/pilates-studio-booking/internal/database"
	"github.com/iliyamo/pilates-studio-booking/internal/handler"
	"github.com/iliyamo/pilates-studio-booking/internal/logger"
	"github.com/iliyamo/pilates-studio-booking/internal/middleware"
	"github.com/iliyamo/pilates-studio-booking/internal/queue"
	"github.com/iliyamo/pilates-studio-booking/internal/repository"
	"github.com/iliyamo/pilates-studio-booking/internal/router"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := config.LoadBookingPolicy()
	if err != nil {
		return err
	}

	db, err := database.Open(database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		zl.Warn("redis unavailable; caching and rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var notifier booking.Notifier = queue.LogNotifier(zl.Named("notify"))
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.NotifyQueue, zl.Named("publisher"))
		defer pub.Close()
		notifier = pub
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("notification publisher stopped", zap.Error(err))
			}
		}()

		consumer := &queue.Consumer{
			URL:     cfg.AMQPURL,
			Queue:   cfg.NotifyQueue,
			LogPath: cfg.NotifyLogPath,
			Log:     zl.Named("consumer"),
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	svc := booking.NewService(repository.NewStore(db),
		booking.WithPolicy(policy),
		booking.WithNotifier(notifier),
		booking.WithLogger(zl.Named("booking")),
	)

	lessons := repository.NewLessonRepo(db)
	deps := router.Deps{
		JWTSecret:    cfg.JWTSecret,
		Auth:         handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), zl),
		Lessons:      handler.NewLessonHandler(lessons, svc, zl),
		Reservations: handler.NewReservationHandler(svc, repository.NewReservationRepo(db), zl),
		Tickets:      handler.NewTicketHandler(repository.NewTicketRepo(db), repository.NewTicketGroupRepo(db), svc, zl),
		Waitlist:     handler.NewWaitlistHandler(svc, repository.NewWaitlistRepo(db), zl),
		Ready:        handler.Ready(db),
		Redis:        rdb,
		Cache:        config.LoadCacheConfig(),
		RateLimit:    config.LoadRateLimitConfig(),
		Log:          zl,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.Logger(zl.Named("http")))
	router.Register(e, deps)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
