package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/ouvidoria/internal/auth"
	"github.com/gestaozabele/ouvidoria/internal/config"
	"github.com/gestaozabele/ouvidoria/internal/db"
	internalhttp "github.com/gestaozabele/ouvidoria/internal/http"
	"github.com/gestaozabele/ouvidoria/internal/maintainer"
	"github.com/gestaozabele/ouvidoria/internal/notification"
	"github.com/gestaozabele/ouvidoria/internal/queue"
	"github.com/gestaozabele/ouvidoria/internal/realtime"
	"github.com/gestaozabele/ouvidoria/internal/report"
	"github.com/gestaozabele/ouvidoria/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var events report.Events
	if cfg.AMQPURL != "" {
		conn, publisher, err := queue.Connect(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer conn.Close()
		events = publisher
		log.Info().Msg("publicação de eventos de relato habilitada")
	}

	reportRepo := report.NewRepository(pool)
	maintainerRepo := maintainer.NewRepository(pool)
	notificationRepo := notification.NewRepository(pool)

	directory := maintainer.NewDirectory(maintainerRepo, redisClient)
	guard := maintainer.NewGuard(directory, reportRepo)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry)

	dispatcher := notification.NewDispatcher(notificationRepo, registry, hub)
	lifecycle := report.NewLifecycle(reportRepo, guard, dispatcher, events)

	var uploader storage.Uploader
	if cfg.Storage.Endpoint != "" {
		uploader, err = storage.NewMinioUploader(storage.MinioConfig{
			Endpoint:     cfg.Storage.Endpoint,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			Bucket:       cfg.Storage.Bucket,
			UseSSL:       cfg.Storage.UseSSL,
			PublicDomain: cfg.Storage.PublicDomain,
		})
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	handler := internalhttp.NewRouter(cfg, jwtManager, lifecycle, dispatcher, hub, uploader)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
