package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/descriptions"
	"github.com/a3tai/mcp-form-filler/internal/dom"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/settings"
	"github.com/a3tai/mcp-form-filler/internal/source"
)

const progressMethod = "notifications/progress"

var (
	// ErrRunInProgress is returned when a fill run already targets the document.
	ErrRunInProgress = errors.New("a fill run is already in progress for this form")
	// ErrNoAPIKey is returned when no credential is configured for a fill run.
	ErrNoAPIKey = errors.New("no API key configured: set one with form_settings or pass api_key")
)

// Deps are the collaborators of the MCP server.
type Deps struct {
	Files    *source.Files
	Browser  *source.Browser // nil disables live URLs
	Settings *settings.Store
	Logger   *zap.Logger

	// EngineOptions are applied after the configured ones.
	EngineOptions []fill.Option
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	deps      Deps
	logger    *zap.Logger
	mcpServer *server.MCPServer

	mu     sync.Mutex
	active map[string]struct{}
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if deps.Files == nil {
		return nil, fmt.Errorf("form files cannot be nil")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		deps:      deps,
		logger:    logger,
		mcpServer: mcpServer,
		active:    make(map[string]struct{}),
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	formFillTool := mcp.NewTool(
		"form_fill",
		mcp.WithDescription(descriptions.GetToolDescription("form_fill")),
		mcp.WithString("path",
			mcp.Description("Saved form page (.html) inside the form directory"),
		),
		mcp.WithString("url",
			mcp.Description("Live form URL, opened in the browser (used when path is empty)"),
		),
		mcp.WithString("output",
			mcp.Description("Where to write the filled page (defaults to <name>.filled.html)"),
		),
		mcp.WithString("api_key",
			mcp.Description("API key for this run; overrides the stored key"),
		),
		mcp.WithBoolean("allow_any_site",
			mcp.Description("Allow live URLs that are not Google Forms"),
		),
	)
	s.mcpServer.AddTool(formFillTool, s.handleFormFill)

	formExtractTool := mcp.NewTool(
		"form_extract",
		mcp.WithDescription(descriptions.GetToolDescription("form_extract")),
		mcp.WithString("path",
			mcp.Description("Saved form page (.html) inside the form directory"),
		),
		mcp.WithString("url",
			mcp.Description("Live form URL (used when path is empty)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("text", "json"),
		),
		mcp.WithBoolean("allow_any_site",
			mcp.Description("Allow live URLs that are not Google Forms"),
		),
	)
	s.mcpServer.AddTool(formExtractTool, s.handleFormExtract)

	formListTool := mcp.NewTool(
		"form_list",
		mcp.WithDescription(descriptions.GetToolDescription("form_list")),
	)
	s.mcpServer.AddTool(formListTool, s.handleFormList)

	formSettingsTool := mcp.NewTool(
		"form_settings",
		mcp.WithDescription(descriptions.GetToolDescription("form_settings")),
		mcp.WithString("api_key",
			mcp.Description("Key to store; omit to show the current status"),
		),
	)
	s.mcpServer.AddTool(formSettingsTool, s.handleFormSettings)

	formServerInfoTool := mcp.NewTool(
		"form_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("form_server_info")),
	)
	s.mcpServer.AddTool(formServerInfoTool, s.handleFormServerInfo)
}

// Handler functions
func (s *Server) handleFormFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	url := request.GetString("url", "")
	if path == "" && url == "" {
		return mcp.NewToolResultError("either path or url is required"), nil
	}

	apiKey := settings.ResolveAPIKey(request.GetString("api_key", ""), s.config.APIKey, s.deps.Settings)
	if apiKey == "" {
		return mcp.NewToolResultError(ErrNoAPIKey.Error()), nil
	}

	observer := s.progressObserver(request)
	var (
		report *fill.Report
		output string
		err    error
	)
	if path != "" {
		report, output, err = s.fillFile(ctx, path, request.GetString("output", ""), apiKey, observer)
	} else {
		report, err = s.fillURL(ctx, url, request.GetBool("allow_any_site", false), apiKey, observer)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFillResult(report, output)), nil
}

func (s *Server) fillFile(ctx context.Context, path, output, apiKey string, observer fill.Observer) (*fill.Report, string, error) {
	doc, abs, err := s.deps.Files.Load(path)
	if err != nil {
		return nil, "", err
	}
	release, err := s.acquire(abs)
	if err != nil {
		return nil, "", err
	}
	defer release()

	report := s.newEngine(observer).Run(ctx, doc, apiKey)
	if report.Filled == 0 {
		return report, "", nil
	}
	if output == "" {
		output = source.DefaultOutputPath(abs)
	}
	written, err := s.deps.Files.Save(doc, output)
	if err != nil {
		return nil, "", fmt.Errorf("save filled form: %w", err)
	}
	return report, written, nil
}

func (s *Server) fillURL(ctx context.Context, url string, allowAny bool, apiKey string, observer fill.Observer) (*fill.Report, error) {
	if err := source.CheckFormURL(url, allowAny); err != nil {
		return nil, err
	}
	release, err := s.acquire(url)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := s.openPage(ctx, url, allowAny)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			s.logger.Debug("close form page", zap.Error(cerr))
		}
	}()

	return s.newEngine(observer).Run(ctx, page.Doc, apiKey), nil
}

func (s *Server) handleFormExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	url := request.GetString("url", "")
	if path == "" && url == "" {
		return mcp.NewToolResultError("either path or url is required"), nil
	}

	var (
		doc    dom.Document
		target = path
	)
	if path != "" {
		fileDoc, _, err := s.deps.Files.Load(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		doc = fileDoc
	} else {
		page, err := s.openPage(ctx, url, request.GetBool("allow_any_site", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer func() { _ = page.Close() }()
		doc = page.Doc
		target = url
	}

	ext, err := form.NewClassifier(s.logger).Extract(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if request.GetString("format", "text") == "json" {
		data, err := json.MarshalIndent(ext, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode extraction: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(s.formatExtractResult(target, ext)), nil
}

func (s *Server) handleFormList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.deps.Files.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatListResult(files)), nil
}

func (s *Server) handleFormSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, hasKey := request.GetArguments()["api_key"].(string)
	if hasKey {
		if err := s.deps.Settings.SetAPIKey(s.config.Provider, key); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Info("api key stored", zap.String("settings", s.deps.Settings.Path()))
		return mcp.NewToolResultText(fmt.Sprintf("✅ API key saved: %s\n", settings.Mask(key))), nil
	}
	return mcp.NewToolResultText(s.formatKeyStatus()), nil
}

func (s *Server) handleFormServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.deps.Files.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfoResult(files)), nil
}

// acquire marks key as busy until the returned release is called.
func (s *Server) acquire(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, key)
	}
	s.active[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
	}, nil
}

func (s *Server) openPage(ctx context.Context, url string, allowAny bool) (*source.Page, error) {
	if s.deps.Browser == nil {
		return nil, fmt.Errorf("live forms are disabled: no browser configured")
	}
	return s.deps.Browser.Open(ctx, url, allowAny)
}

func (s *Server) newEngine(observer fill.Observer) *fill.Engine {
	opts := s.config.EngineOptions(s.logger)
	opts = append(opts, s.deps.EngineOptions...)
	if observer != nil {
		opts = append(opts, fill.WithObserver(observer))
	}
	return fill.NewEngine(s.logger, opts...)
}

// progressObserver forwards run progress to the client when it asked for it.
func (s *Server) progressObserver(request mcp.CallToolRequest) fill.Observer {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	token := request.Params.Meta.ProgressToken
	return fill.ObserverFunc(func(ctx context.Context, p fill.Progress) {
		srv := server.ServerFromContext(ctx)
		if srv == nil {
			return
		}
		err := srv.SendNotificationToClient(ctx, progressMethod, map[string]any{
			"progressToken": token,
			"progress":      p.Current,
			"total":         p.Total,
			"message":       p.Question,
		})
		if err != nil {
			s.logger.Debug("progress notification dropped", zap.Error(err))
		}
	})
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting form MCP server in stdio mode",
		zap.String("dir", s.deps.Files.Dir()))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting form MCP server in SSE mode", zap.String("addr", addr))
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		return nil
	}
}
