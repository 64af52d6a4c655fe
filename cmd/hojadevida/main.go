// CLAUDE:SUMMARY Entry point of the CV site: SQLite store, headless Chrome printer, MinIO uploads, chi HTTP server or MCP over stdio.
// Command hojadevida serves the CV site and its merged PDF export.
//
// Usage:
//
//	hojadevida                         # env + defaults
//	hojadevida -config hojadevida.yaml
//	hojadevida -mcp                    # MCP tools over stdio, no HTTP
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/cvstore"
	"github.com/hazyhaar/hojadevida/dbopen"
	"github.com/hazyhaar/hojadevida/export"
	"github.com/hazyhaar/hojadevida/fetch"
	"github.com/hazyhaar/hojadevida/internal/browser"
	"github.com/hazyhaar/hojadevida/netguard"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/render"
	"github.com/hazyhaar/hojadevida/shield"
	"github.com/hazyhaar/hojadevida/sqltrace"
	"github.com/hazyhaar/hojadevida/uploads"
	"github.com/hazyhaar/hojadevida/web"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to hojadevida.yaml config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hojadevida: config:", err)
		os.Exit(1)
	}

	// stdout carries the protocol in MCP mode.
	out := os.Stdout
	if *mcpMode {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *mcpMode, logger); err != nil {
		logger.Error("hojadevida: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, mcpMode bool, logger *slog.Logger) error {
	var (
		storeOpts []dbopen.Option
		traces    *sqltrace.Store
		slowQ     web.SlowQueries
	)
	if cfg.SQLTrace.DBPath != "" {
		var err error
		if traces, err = sqltrace.OpenStore(cfg.SQLTrace.DBPath); err != nil {
			return fmt.Errorf("sql trace store: %w", err)
		}
		defer traces.Close()
		sqltrace.SetRecorder(traces)
		defer sqltrace.SetRecorder(nil)
		sqltrace.SetSlowThreshold(cfg.SQLTrace.Slow)
		storeOpts = append(storeOpts, dbopen.WithDriver(sqltrace.DriverName))
		slowQ = traces
	}

	store, err := cvstore.Open(cfg.DBPath, storeOpts...)
	if err != nil {
		return err
	}
	defer store.Close()
	db := store.DB()
	if err := observability.Init(db); err != nil {
		return fmt.Errorf("observability schema: %w", err)
	}

	// Uploaded files resolve through the bucket when one is configured.
	var files attachment.FileURLs
	var uploader web.Uploader
	if cfg.Storage.Endpoint != "" {
		up, err := uploads.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		files, uploader = up, up
	} else {
		logger.Warn("hojadevida: no object storage configured, uploads disabled")
	}
	svc := cv.NewService(store, attachment.NewResolver(files), logger)

	if mcpMode {
		srv := mcp.NewServer(&mcp.Implementation{Name: "hojadevida", Version: version}, nil)
		svc.RegisterMCP(srv)
		logger.Info("hojadevida: MCP on stdio", "db", cfg.DBPath)
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	browsers := browser.NewManager(browser.Config{
		RemoteURL: cfg.Chrome.URL,
		Bin:       cfg.Chrome.Bin,
		MaxAge:    cfg.Chrome.Recycle,
		Logger:    logger,
	})
	defer browsers.Close()

	rend, err := render.New(render.Config{
		Printer:   render.NewRodPrinter(browsers),
		AdminPath: cfg.AdminURL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	metrics := observability.NewMetricsManager(db, 100, 5*time.Second)
	defer metrics.Close()
	events := observability.NewEventLogger(db, "hojadevida")

	fetchOpts := []fetch.Option{
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithMaxSize(cfg.Fetch.MaxSize),
		fetch.WithWorkers(cfg.Fetch.Workers),
		fetch.WithUserAgent("hojadevida/" + version),
		fetch.WithLogger(logger),
	}
	if !cfg.Fetch.AllowPrivate {
		fetchOpts = append(fetchOpts, fetch.WithURLGuard(netguard.ValidateURL))
	}

	exporter := export.New(export.Config{
		Views:    svc,
		Renderer: rend,
		Fetcher:  fetch.New(fetchOpts...),
		Metrics:  metrics,
		Events:   events,
		Logger:   logger,
	})

	if cfg.Admin.PasswordHash == "" {
		logger.Warn("hojadevida: ADMIN_PASSWORD_HASH not set, admin API disabled")
	}
	proxies, err := shield.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	server, err := web.New(web.Config{
		DB:             db,
		Store:          store,
		Service:        svc,
		Renderer:       rend,
		Exporter:       exporter,
		Uploads:        uploader,
		SQLTraces:      slowQ,
		TrustedProxies: proxies,
		Admin:          cfg.Admin,
		Events:         events,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	server.StartReloaders(ctx.Done())
	go retentionLoop(ctx, db, traces, cfg.Retention, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second, // exports print and fetch before writing
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

// retentionLoop prunes old metrics, events and SQL traces once a day.
// traces may be nil.
func retentionLoop(ctx context.Context, db *sql.DB, traces *sqltrace.Store, cfg RetentionConfig, logger *slog.Logger) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		err := observability.Cleanup(ctx, db, observability.RetentionConfig{
			MetricsDays:   cfg.MetricsDays,
			EventLogsDays: cfg.EventsDays,
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("retention cleanup", "error", err)
		}
		if traces != nil {
			cutoff := time.Now().AddDate(0, 0, -cfg.MetricsDays)
			if _, err := traces.Prune(ctx, cutoff); err != nil && ctx.Err() == nil {
				logger.Warn("sql trace cleanup", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
