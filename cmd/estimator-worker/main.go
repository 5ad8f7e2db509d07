package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"estimator/internal/amqp"
	"estimator/internal/auth"
	"estimator/internal/cli"
	"estimator/internal/config"
	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/gateway/rest"
	"estimator/internal/log"
	"estimator/internal/sheets"
	gsheet "estimator/internal/sheets/google"
	sheetsmemory "estimator/internal/sheets/memory"
	"estimator/internal/storage"
	"estimator/internal/worker"
)

// workerUserID is the subject of the token the worker mints for itself when
// the API requires authentication.
const workerUserID = "export-worker"

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.Default(log.ComponentWorker).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting estimator worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the export worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	reader, cleanup, err := newReader(cfg)
	if err != nil {
		logger.Error("Failed to initialize estimation reader", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Reader cleanup failed", log.FieldError, err)
		}
	}()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exports := worker.NewExportWorker(reader, exporter)
	logger.Info("Consuming change messages",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
	)
	if err := amqpClient.ConsumeChanges(ctx, exports.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// newReader reads estimations straight from the database when the API uses
// SQLite, and through the API otherwise.
func newReader(cfg *config.Config) (worker.EstimationReader, func() error, error) {
	if cfg.DataBackend == config.BackendSQLite {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}

	session := gateway.NewSession()
	if cfg.RequireAuth {
		token, err := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL).Issue(workerUserID)
		if err != nil {
			return nil, nil, fmt.Errorf("issue worker token: %w", err)
		}
		session.SetCredential(token, core.User{ID: workerUserID})
	}
	client, err := rest.New(cfg.APIBaseURL, session, rest.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, nil, err
	}
	return client, func() error { return nil }, nil
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.EstimationExporter, error) {
	layout := sheets.Layout{Locale: cfg.Locale, Currency: cfg.Currency}
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
		return sheetsmemory.New(layout), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		TabPrefix:       cfg.SheetsTabPrefix,
		Layout:          layout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
