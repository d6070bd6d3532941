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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/oceanschool/internal/api"
	"github.com/sumire/oceanschool/internal/config"
	"github.com/sumire/oceanschool/internal/handler"
	"github.com/sumire/oceanschool/internal/repository"
	"github.com/sumire/oceanschool/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := api.NewClient(cfg.APIURL, api.Options{Timeout: cfg.RequestTimeout, Logger: logger})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	nav := service.NavigatorFunc(func() {
		slog.Warn("session expired, log in again via POST /v1/session/login")
	})
	sessions := service.NewSessionManager(store, client, nav, logger)
	client.SetAuth(sessions, sessions)

	channel, err := service.NewChannel(client, sessions, service.NewFeed(), service.ChannelOptions{
		PushURL:        cfg.PushURL,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create notification channel: %w", err)
	}

	binderDone := make(chan struct{})
	go func() {
		service.NewBinder(sessions, channel, logger).Run(ctx)
		close(binderDone)
	}()

	session := sessions.Restore(ctx)
	slog.Info("session resolved", "state", session.State, "role", session.Role())

	if !session.Active() && cfg.Username != "" {
		if _, err := sessions.Login(ctx, cfg.Username, cfg.Password); err != nil {
			slog.Error("login failed", "username", cfg.Username, "error", err)
		}
	}

	e := handler.NewRouter(sessions, channel, logger)
	srv := &http.Server{
		Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.GatewayPort),
		Handler:     e,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway starting", "port", cfg.GatewayPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-binderDone
			return fmt.Errorf("gateway error: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	<-binderDone

	slog.Info("stopped gracefully")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (service.CredentialStore, func(), error) {
	switch cfg.CredentialStore {
	case config.StoreMemory:
		return repository.NewMemoryCredentialStore(), func() {}, nil
	case config.StorePostgres:
		db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		store := repository.NewSQLCredentialStore(db, cfg.CredentialName)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("prepare credential table: %w", err)
		}
		slog.Info("database connected")
		return store, func() { db.Close() }, nil
	default:
		store, err := repository.NewFileCredentialStore(cfg.CredentialFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open credential file: %w", err)
		}
		return store, func() {}, nil
	}
}
