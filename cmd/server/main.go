package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Physolia/ktechlab/internal/api"
	"github.com/Physolia/ktechlab/internal/catalog"
	"github.com/Physolia/ktechlab/internal/config"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/session"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "ktechlab-docs.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("ktechlab-docs", cfg.Advanced.LogLevel)

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatalf("failed to create directories: %v", err)
	}

	lib, err := library.LoadWithOverride(cfg.Storage.LibraryPath)
	if err != nil {
		logger.Fatalf("failed to load part library: %v", err)
	}

	fileStore, err := storage.NewLocalFileStore(cfg.Storage.DocumentsDirectory, logger)
	if err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}

	var cat *catalog.Catalog
	if cfg.Storage.EnableCatalog {
		cat, err = catalog.Open(cfg.Storage.CatalogPath, catalog.Options{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			Log:         logger,
		})
		if err != nil {
			logger.Fatalf("failed to open catalog: %v", err)
		}
		defer cat.Close()
		reindex(cat, fileStore, logger)
	}

	opts := session.Options{
		Transfer: storage.NewTransfer(storage.TransferOptions{
			Root:         cfg.Transfer.Root,
			AllowedHosts: cfg.RemoteHosts(),
			TempDir:      cfg.Storage.TempDirectory,
			Timeout:      cfg.RemoteTimeout(),
			MaxSize:      cfg.TransferLimit(),
			Log:          logger,
		}),
		HistoryDepth: cfg.Sessions.HistoryDepth,
		MaxSessions:  cfg.Sessions.MaxSessions,
		Log:          logger,
	}
	deps := &api.Dependencies{
		Store:   fileStore,
		Log:     logger,
		Version: Version,
	}
	if cat != nil {
		opts.Catalog = cat
		deps.Catalog = cat
	}
	sessionMgr := session.NewManager(fileStore, lib, opts)
	deps.SessionMgr = sessionMgr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(cfg.SessionTimeout())
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	api.SetupMiddleware(e, cfg.Advanced.ShowErrorDetails, logger)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Saves and location opens may wait on a remote transfer.
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/save") || path == "/api/sessions"
		},
		ErrorMessage: "Request timeout - operation took too long",
	}))

	e.Use(middleware.Gzip())

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(deps))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           KTechlab Document Service                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Documents: %-46s║\n", cfg.Storage.DocumentsDirectory)
	fmt.Printf("║  Files:     %-46s║\n", cfg.Transfer.Root)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// reindex records every stored document the catalog does not know yet.
func reindex(cat *catalog.Catalog, store *storage.FileStore, log logging.Logger) {
	ctx := context.Background()
	entries, err := cat.List(ctx, 0)
	if err != nil {
		log.Warnf("catalog reindex skipped: %v", err)
		return
	}
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		known[e.ID] = struct{}{}
	}

	files, err := store.List(0)
	if err != nil {
		log.Warnf("catalog reindex skipped: %v", err)
		return
	}
	for _, info := range files {
		if _, ok := known[info.ID]; ok {
			continue
		}
		data, err := store.Read(info.ID)
		if err != nil {
			log.Warnf("catalog reindex of %s: %v", info.ID, err)
			continue
		}
		if err := cat.Record(ctx, info.ID, info.Name, data); err != nil {
			log.Warnf("catalog reindex of %s: %v", info.ID, err)
		}
	}
}
