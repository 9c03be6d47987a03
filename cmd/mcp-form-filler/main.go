package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/mcp"
	"github.com/a3tai/mcp-form-filler/internal/settings"
	"github.com/a3tai/mcp-form-filler/internal/source"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the logger for the configured mode. In stdio mode
// informational logs are suppressed so they never compete with the protocol.
func setupLogging(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.IsStdioMode())
}

// newDeps opens the form directory, the settings store and the browser
// connector. The returned cleanup closes the browser.
func newDeps(cfg *config.Config, logger *zap.Logger) (mcp.Deps, func(), error) {
	files, err := source.NewFiles(cfg.FormDirectory, cfg.MaxFileSize)
	if err != nil {
		return mcp.Deps{}, nil, fmt.Errorf("open form directory: %w", err)
	}
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return mcp.Deps{}, nil, err
	}
	browser := source.NewBrowser(source.BrowserOptions{
		ControlURL: cfg.BrowserURL,
		Headless:   cfg.Headless,
	}, logger)

	cleanup := func() {
		if err := browser.Close(); err != nil {
			logger.Warn("failed to close browser", zap.Error(err))
		}
	}
	return mcp.Deps{Files: files, Browser: browser, Settings: store, Logger: logger}, cleanup, nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *zap.Logger) int {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", zap.Error(err))
			return 1
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped successfully")
	return 0
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, server *mcp.Server, logger *zap.Logger) int {
	// In stdio mode, the parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}

func run() int {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return 0
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}
	logger.Debug("starting with configuration", zap.Stringer("config", cfg))

	deps, cleanup, err := newDeps(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer cleanup()

	// Create MCP server
	server, err := mcp.NewServer(cfg, deps)
	if err != nil {
		logger.Error("failed to create MCP server", zap.Error(err))
		return 1
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server, logger)
	}
	return runStdioMode(ctx, server, logger)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Form Filler\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
