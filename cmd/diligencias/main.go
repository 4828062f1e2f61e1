package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for minimal images

	"github.com/ericfisherdev/diligencias/internal/adapter/driven/memstore"
	"github.com/ericfisherdev/diligencias/internal/adapter/driven/slack"
	sqliteadapter "github.com/ericfisherdev/diligencias/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/diligencias/internal/adapter/driven/transport"
	"github.com/ericfisherdev/diligencias/internal/adapter/driving/cli"
	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/config"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Debug("config loaded",
		"api_url", cfg.APIURL,
		"store_path", cfg.StorePath,
		"include_credentials", cfg.IncludeCredentials,
		"http_cache", cfg.HTTPCache,
		"proxy", cfg.ProxyURL != "",
		"notifications", cfg.SlackWebhookURL != "",
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the credential store.
	var store driven.CredentialStore
	if cfg.HasPersistentStore() {
		db, err := sqliteadapter.NewDB(ctx, cfg.StorePath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer, logger); err != nil {
			return err
		}
		logger.Debug("credential store open", "path", db.Path())
		store = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	} else {
		logger.Debug("no store path configured, credentials last for this process only")
		store = memstore.New()
	}

	// 4. Wire adapters.
	tr, err := transport.New(transport.Options{
		ProxyURL: cfg.ProxyURL,
		Cache:    cfg.HTTPCache,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer tr.CloseIdleConnections()

	var notifier driven.Notifier = slack.Nop{}
	if cfg.SlackWebhookURL != "" {
		notifier = slack.NewNotifier(cfg.SlackWebhookURL)
	}

	credentials := model.CredentialsOmit
	if cfg.IncludeCredentials {
		credentials = model.CredentialsInclude
	}

	// 5. Create the API client and services.
	client, err := application.NewAPIClient(application.NewSession(store), tr, application.APIClientOptions{
		BaseURL:        cfg.APIURL,
		Credentials:    credentials,
		DefaultHeaders: cfg.ExtraHeaders,
		OnReauthRequired: func(context.Context, error) {
			fmt.Fprintln(os.Stderr, "session expired or missing: run `diligencias login --email <email>`")
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	users := application.NewUserService(client)
	customers := application.NewCustomerService(client)
	records := application.NewRecordService(client, application.RecordServiceOptions{
		Notifier:      notifier,
		NotifyTimeout: cfg.NotifyTimeout,
		Logger:        logger,
	})
	defer records.Wait()
	dashboard := application.NewDashboardService(users, customers, records)

	// 6. Run the command line.
	handler := cli.NewHandler(client, users, customers, records, dashboard, logger)
	return handler.Run(ctx, handler.RootCommand())
}
