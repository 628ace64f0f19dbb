package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gym-booking-service/internal/app"
	"gym-booking-service/internal/config"
	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/notify"
	"gym-booking-service/internal/server"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	catalog := slots.NewDefaultCatalog()
	if err := app.LoadOverrides(ctx, st, catalog); err != nil {
		return err
	}

	var events notify.Publisher = notify.NoopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := notify.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, 5*time.Second)
		if err != nil {
			return err
		}
		events = p
		logger.Info("publishing reservation events", "exchange", cfg.AMQPExchange)
	}
	defer events.Close()

	var mail notify.Sender = notify.NoopSender{}
	if cfg.ResendAPIKey != "" {
		mail = notify.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	}

	deps := &workflow.Deps{
		Store:    st,
		Profiles: st,
		Catalog:  catalog,
		Clock:    datekey.RealClock{},
		Location: cfg.Location,
		Observer: &notify.Notifier{
			Events:  events,
			Mail:    mail,
			Timeout: 10 * time.Second,
			Logger:  logger,
		},
		Logger:       logger,
		StoreTimeout: cfg.StoreTimeout,
		DefaultName:  cfg.DefaultName,
	}

	gin.SetMode(gin.ReleaseMode)
	appInstance := &app.App{
		Store:    st,
		Catalog:  catalog,
		Deps:     deps,
		Sessions: workflow.NewRegistry(deps, cfg.SessionIdleTTL),
		Logger:   logger,
	}
	if cfg.GoogleCalendarEnabled() {
		appInstance.Calendar = app.NewCalendarConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		logger.Info("google calendar export enabled")
	}
	router := app.NewRouter(appInstance, app.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		StaticTokens: cfg.StaticTokens,
		AdminTokens:  cfg.AdminTokens,
	})

	return server.Run(ctx, router, ":"+cfg.Port)
}
