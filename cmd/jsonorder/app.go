package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jsonorder/internal/config"
	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
	"jsonorder/internal/slogutil"
	"jsonorder/internal/storage"
)

// app holds what a command needs once configuration and storage are open.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB
	repo   *storage.DocumentRepository
	docs   *docstore.Adapter
	out    io.Writer
	format OutputFormat
}

// loadConfig loads configuration from the working directory (or --config)
// and applies global flag overrides.
func loadConfig() (*config.LoadResult, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to get working directory", err)
	}

	result, err := config.LoadConfigWithDetails(dir, configPath)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load configuration", err)
	}

	applyFlagOverrides(result.Config)
	if err := result.Config.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}
	return result, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if colorMode != "" {
		cfg.Output.Color = colorMode
	}
}

// openApp loads configuration and opens the document store. With memory set
// the database lives only for the duration of the command.
func openApp(cmd *cobra.Command, memory bool) (*app, error) {
	result, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := result.Config

	logger := slogutil.FromConfig(cfg.Logging, cmd.ErrOrStderr())
	configureColor(cfg.Output.Color, cmd.OutOrStdout())

	path := cfg.Storage.Path
	if memory {
		path = storage.MemoryPath
	}
	db, err := storage.Open(storage.Options{
		Path:        path,
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeoutMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return nil, errors.New(errors.PersistenceFailure, fmt.Sprintf("failed to open database %s", path), err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		repo:   storage.NewDocumentRepository(db),
		out:    cmd.OutOrStdout(),
		format: OutputFormat(cfg.Output.Format),
	}
	a.docs = a.newAdapter(cfg.Import.Concurrency)
	return a, nil
}

// newAdapter builds a document adapter with the given batch concurrency.
func (a *app) newAdapter(concurrency int) *docstore.Adapter {
	return docstore.New(a.repo, docstore.Options{
		Retry:       retryPolicy(a.cfg.Retry),
		Concurrency: concurrency,
		Logger:      a.logger,
	})
}

func retryPolicy(rc config.RetryConfig) docstore.RetryPolicy {
	return docstore.RetryPolicy{
		MaxRetries: rc.MaxRetries,
		BaseDelay:  time.Duration(rc.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(rc.MaxDelayMs) * time.Millisecond,
	}
}

// Close releases the database.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", "error", err)
	}
}

// print formats resp for the configured output format and writes it.
func (a *app) print(resp interface{}) error {
	output, err := FormatResponse(resp, a.format)
	if err != nil {
		return errors.New(errors.InternalError, "failed to format output", err)
	}
	_, err = fmt.Fprintln(a.out, output)
	return err
}

// currentFormat is the output format for reporting errors. It never fails;
// a broken configuration falls back to the flag or human output.
func currentFormat() OutputFormat {
	if outputFormat != "" {
		return OutputFormat(outputFormat)
	}
	if result, err := loadConfig(); err == nil {
		return OutputFormat(result.Config.Output.Format)
	}
	return FormatHuman
}
