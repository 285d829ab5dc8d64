package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"campus-canteen/config"
	"campus-canteen/events"
	"campus-canteen/handlers"
	"campus-canteen/store"
	"campus-canteen/utils"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := utils.NewLogger(os.Stdout, cfg.IsDevelopment())
	slog.SetDefault(log)

	utils.ConfigureJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/* DATABASE SETUP STARTS */
	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connected", "action", utils.ActionDBConnected, "driver", cfg.Database.Driver)

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	s := store.New(db, publisher, log)
	defer s.Close()

	if err := s.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := s.EnsureSuperadmin(ctx, cfg.Auth.SuperadminEmail, cfg.Auth.SuperadminPassword); err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	/* DATABASE SETUP ENDS */

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.Init(s, log)
	router := handlers.NewRouter(handlers.CORSConfig(cfg.IsDevelopment(), cfg.CORS.Origins))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "action", utils.ActionServiceStarted, "port", cfg.App.Port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "action", utils.ActionGracefulShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newPublisher connects the optional event sinks. With none configured
// order events are dropped.
func newPublisher(cfg *config.Config, log *slog.Logger) (events.Publisher, error) {
	var sinks []events.Publisher

	if cfg.RabbitMQ.URL != "" {
		mq, err := events.ConnectRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		sinks = append(sinks, mq)
	}

	if cfg.Telegram.Token != "" {
		tg, err := events.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			for _, sink := range sinks {
				sink.Close()
			}
			return nil, fmt.Errorf("connect to telegram: %w", err)
		}
		sinks = append(sinks, tg)
	}

	if len(sinks) == 0 {
		return events.Nop{}, nil
	}
	return events.NewFanout(log, sinks...), nil
}
