package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/apply"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/oracle"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Grid strategies
	GridOracle = "oracle"
	GridRandom = "random"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB
	DefaultPace        = 2 * time.Second

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MCP_FORM"
)

// Config holds all configuration for the form filler
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Form snapshot configuration
	FormDirectory string
	MaxFileSize   int64 // Maximum HTML file size in bytes

	// Oracle configuration
	Provider     string
	Endpoint     string
	Model        string
	MaxNewTokens int
	Temperature  float64
	DoSample     bool
	Timeout      time.Duration

	// Run pacing
	Pace         time.Duration
	Settle       time.Duration
	RowDelay     time.Duration
	GridStrategy string

	// Credentials
	SettingsPath string
	APIKey       string

	// Live browser
	BrowserURL string
	Headless   bool

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	timing := apply.DefaultTiming()
	oracleOpts := oracle.DefaultOptions()

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		FormDirectory: currentDir,
		MaxFileSize:   DefaultMaxFileSize,
		Provider:      oracleOpts.Provider,
		Endpoint:      oracleOpts.Endpoint,
		MaxNewTokens:  oracleOpts.MaxNewTokens,
		Temperature:   oracleOpts.Temperature,
		DoSample:      oracleOpts.DoSample,
		Timeout:       oracleOpts.Timeout,
		Pace:          DefaultPace,
		Settle:        timing.Settle,
		RowDelay:      timing.RowDelay,
		GridStrategy:  GridOracle,
		SettingsPath:  defaultSettingsPath(),
		Headless:      true,
		Version:       "1.0.0",
		ServerName:    "mcp-form-filler",
		LogLevel:      DefaultLogLevel,
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".mcp-form-filler.yaml"
	}
	return filepath.Join(dir, "mcp-form-filler", "settings.yaml")
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	RegisterFlags(pflag.CommandLine, cfg)
	bindFlagsToViper(pflag.CommandLine)
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	return finalize(cfg)
}

// LoadFromFlagSet builds a configuration from a flag set that was registered
// with RegisterFlags and already parsed, as cobra does.
func LoadFromFlagSet(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	bindFlagsToViper(fs)

	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.FormDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.FormDirectory); err == nil {
			cfg.FormDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.FormDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("provider", cfg.Provider)
	viper.SetDefault("endpoint", cfg.Endpoint)
	viper.SetDefault("model", cfg.Model)
	viper.SetDefault("maxnewtokens", cfg.MaxNewTokens)
	viper.SetDefault("temperature", cfg.Temperature)
	viper.SetDefault("dosample", cfg.DoSample)
	viper.SetDefault("timeout", cfg.Timeout)
	viper.SetDefault("pace", cfg.Pace)
	viper.SetDefault("settle", cfg.Settle)
	viper.SetDefault("rowdelay", cfg.RowDelay)
	viper.SetDefault("grid", cfg.GridStrategy)
	viper.SetDefault("settings", cfg.SettingsPath)
	viper.SetDefault("apikey", cfg.APIKey)
	viper.SetDefault("browser", cfg.BrowserURL)
	viper.SetDefault("headless", cfg.Headless)
}

// RegisterFlags defines every configuration flag on fs
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for SSE over HTTP")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.FormDirectory, "Directory containing saved form pages")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum form page size in bytes")
	fs.String("provider", cfg.Provider, "Oracle provider (huggingface, gemini)")
	fs.String("endpoint", cfg.Endpoint, "Hugging Face inference endpoint")
	fs.String("model", cfg.Model, "Gemini model name")
	fs.Int("maxnewtokens", cfg.MaxNewTokens, "Maximum tokens generated per answer")
	fs.Float64("temperature", cfg.Temperature, "Sampling temperature")
	fs.Bool("dosample", cfg.DoSample, "Enable sampling on the inference endpoint")
	fs.Duration("timeout", cfg.Timeout, "Oracle request timeout")
	fs.Duration("pace", cfg.Pace, "Minimum time between questions")
	fs.Duration("settle", cfg.Settle, "Pause between scrolling to and clicking a control")
	fs.Duration("rowdelay", cfg.RowDelay, "Pause between grid rows")
	fs.String("grid", cfg.GridStrategy, "Grid answering strategy (oracle, random)")
	fs.String("settings", cfg.SettingsPath, "Settings file holding the stored API key")
	fs.String("apikey", cfg.APIKey, "Oracle API key (overrides the settings file)")
	fs.String("browser", cfg.BrowserURL, "DevTools URL of a running browser for live pages")
	fs.Bool("headless", cfg.Headless, "Launch the browser headless when no DevTools URL is given")
}

var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "maxfilesize",
	"provider", "endpoint", "model", "maxnewtokens", "temperature", "dosample", "timeout",
	"pace", "settle", "rowdelay", "grid", "settings", "apikey", "browser", "headless",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(fs *pflag.FlagSet) {
	for _, key := range flagKeys {
		if f := fs.Lookup(key); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Form Filler - A Model Context Protocol server that answers survey forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/forms       # SSE server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --provider=gemini --apikey=...           # answer with Gemini\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_DIR         Form page directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_PROVIDER    Oracle provider\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_APIKEY      Oracle API key\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_SETTINGS    Settings file\n")
		fmt.Fprintf(os.Stderr, "  MCP_FORM_BROWSER     DevTools URL\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.FormDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Provider = viper.GetString("provider")
	cfg.Endpoint = viper.GetString("endpoint")
	cfg.Model = viper.GetString("model")
	cfg.MaxNewTokens = viper.GetInt("maxnewtokens")
	cfg.Temperature = viper.GetFloat64("temperature")
	cfg.DoSample = viper.GetBool("dosample")
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.Pace = viper.GetDuration("pace")
	cfg.Settle = viper.GetDuration("settle")
	cfg.RowDelay = viper.GetDuration("rowdelay")
	cfg.GridStrategy = viper.GetString("grid")
	cfg.SettingsPath = viper.GetString("settings")
	cfg.APIKey = viper.GetString("apikey")
	cfg.BrowserURL = viper.GetString("browser")
	cfg.Headless = viper.GetBool("headless")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate form directory
	if c.FormDirectory == "" {
		return errors.New("form directory cannot be empty")
	}

	// Check if form directory exists, create if it doesn't
	if _, err := os.Stat(c.FormDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.FormDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create form directory %s: %w", c.FormDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access form directory %s: %w", c.FormDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.Provider != oracle.ProviderHuggingFace && c.Provider != oracle.ProviderGemini {
		return fmt.Errorf("invalid provider: %s (must be one of: huggingface, gemini)", c.Provider)
	}
	if c.GridStrategy != GridOracle && c.GridStrategy != GridRandom {
		return fmt.Errorf("invalid grid strategy: %s (must be one of: oracle, random)", c.GridStrategy)
	}
	if c.MaxNewTokens <= 0 {
		return errors.New("max new tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if c.Timeout < 0 || c.Pace < 0 || c.Settle < 0 || c.RowDelay < 0 {
		return errors.New("durations cannot be negative")
	}
	if c.SettingsPath == "" {
		return errors.New("settings path cannot be empty")
	}

	return nil
}

// OracleOptions returns the oracle construction options
func (c *Config) OracleOptions() oracle.Options {
	return oracle.Options{
		Provider:     c.Provider,
		Endpoint:     c.Endpoint,
		Model:        c.Model,
		MaxNewTokens: c.MaxNewTokens,
		Temperature:  c.Temperature,
		DoSample:     c.DoSample,
		Timeout:      c.Timeout,
	}
}

// Timing returns the applicator pauses
func (c *Config) Timing() apply.Timing {
	t := apply.DefaultTiming()
	t.Settle = c.Settle
	t.RowDelay = c.RowDelay
	if c.Settle < t.GridSettle {
		t.GridSettle = c.Settle
	}
	return t
}

// EngineOptions returns the fill engine options for this configuration.
// Each call creates a fresh pacer, so concurrent runs are paced independently.
func (c *Config) EngineOptions(logger *zap.Logger) []fill.Option {
	return []fill.Option{
		fill.WithOracleFactory(oracle.NewFactory(c.OracleOptions(), logger)),
		fill.WithPacer(fill.NewPacer(c.Pace)),
		fill.WithApplier(apply.NewRegistry(c.Timing())),
		fill.WithGridStrategy(fill.GridStrategy(c.GridStrategy)),
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	apiKey := "unset"
	if c.APIKey != "" {
		apiKey = "set"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, FormDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"Provider: %s, Grid: %s, Pace: %s, APIKey: %s}",
		c.Mode, c.Host, c.Port, c.FormDirectory, c.LogLevel, c.MaxFileSize,
		c.Provider, c.GridStrategy, c.Pace, apiKey)
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
