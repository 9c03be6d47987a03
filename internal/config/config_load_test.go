package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

var envKeys = []string{
	"MCP_FORM_MODE", "MCP_FORM_HOST", "MCP_FORM_PORT", "MCP_FORM_DIR", "MCP_FORM_LOGLEVEL",
	"MCP_FORM_MAXFILESIZE", "MCP_FORM_PROVIDER", "MCP_FORM_APIKEY", "MCP_FORM_PACE", "MCP_FORM_GRID",
}

// Helper function to clear environment variables
func clearEnvVars() {
	for _, key := range envKeys {
		os.Unsetenv(key)
	}
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})
	setArgs(args)
	resetFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	withArgs(t, "mcp-form-filler")
	clearEnvVars()

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, "huggingface", cfg.Provider)
	assert.Equal(t, 20, cfg.MaxNewTokens)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.True(t, cfg.DoSample)
	assert.Equal(t, 2*time.Second, cfg.Pace)
	assert.Equal(t, GridOracle, cfg.GridStrategy)
	assert.NotEmpty(t, cfg.FormDirectory)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ModeServer, cfg.Mode)
				assert.Equal(t, "0.0.0.0:9090", cfg.Address())
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=debug"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsDebug())
			},
		},
		{
			name: "gemini provider",
			args: []string{"--provider=gemini", "--model=gemini-2.0-flash", "--apikey=AIza-test"},
			check: func(t *testing.T, cfg *Config) {
				opts := cfg.OracleOptions()
				assert.Equal(t, "gemini", opts.Provider)
				assert.Equal(t, "gemini-2.0-flash", opts.Model)
				assert.Equal(t, "AIza-test", cfg.APIKey)
			},
		},
		{
			name: "pacing and timing",
			args: []string{"--pace=0s", "--settle=100ms", "--rowdelay=50ms", "--grid=random"},
			check: func(t *testing.T, cfg *Config) {
				assert.Zero(t, cfg.Pace)
				timing := cfg.Timing()
				assert.Equal(t, 100*time.Millisecond, timing.Settle)
				assert.Equal(t, 100*time.Millisecond, timing.GridSettle)
				assert.Equal(t, 50*time.Millisecond, timing.RowDelay)
				assert.Equal(t, GridRandom, cfg.GridStrategy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			withArgs(t, append([]string{"mcp-form-filler", "--dir=" + tempDir}, tt.args...)...)
			clearEnvVars()

			cfg, err := LoadFromFlags()
			require.NoError(t, err)
			assert.Equal(t, tempDir, cfg.FormDirectory)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	withArgs(t, "mcp-form-filler")
	tempDir := t.TempDir()

	t.Setenv("MCP_FORM_MODE", "server")
	t.Setenv("MCP_FORM_HOST", "192.168.1.1")
	t.Setenv("MCP_FORM_PORT", "3000")
	t.Setenv("MCP_FORM_DIR", tempDir)
	t.Setenv("MCP_FORM_LOGLEVEL", "warn")
	t.Setenv("MCP_FORM_APIKEY", "hf_env")
	t.Setenv("MCP_FORM_PACE", "500ms")

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, "192.168.1.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "hf_env", cfg.APIKey)
	assert.Equal(t, 500*time.Millisecond, cfg.Pace)
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	withArgs(t, "mcp-form-filler", "--mode=stdio", "--host=localhost", "--port=8888")

	t.Setenv("MCP_FORM_MODE", "server")
	t.Setenv("MCP_FORM_HOST", "192.168.1.1")
	t.Setenv("MCP_FORM_PORT", "3000")

	cfg, err := LoadFromFlags()
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode, "should override env")
	assert.Equal(t, "localhost", cfg.Host, "should override env")
	assert.Equal(t, 8888, cfg.Port, "should override env")
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "port", args: []string{"--mode=server", "--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "log level", args: []string{"--loglevel=invalid"}, wantErr: "invalid log level"},
		{name: "provider", args: []string{"--provider=openai"}, wantErr: "invalid provider"},
		{name: "grid", args: []string{"--grid=diagonal"}, wantErr: "invalid grid strategy"},
		{name: "temperature", args: []string{"--temperature=3"}, wantErr: "temperature must be between 0 and 2"},
		{name: "tokens", args: []string{"--maxnewtokens=0"}, wantErr: "max new tokens must be positive"},
		{name: "negative pace", args: []string{"--pace=-1s"}, wantErr: "durations cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, append([]string{"mcp-form-filler", "--dir=" + t.TempDir()}, tt.args...)...)
			clearEnvVars()

			_, err := LoadFromFlags()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	withArgs(t, "mcp-form-filler", "--version")
	clearEnvVars()

	_, err := LoadFromFlags()
	require.Error(t, err)
	assert.Equal(t, "version requested", err.Error())
}

func TestLoadFromFlagSet(t *testing.T) {
	withArgs(t, "form-fill")
	clearEnvVars()

	fs := pflag.NewFlagSet("form-fill", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())
	require.NoError(t, fs.Parse([]string{"--dir=" + t.TempDir(), "--grid=random", "--apikey=hf_cli"}))

	cfg, err := LoadFromFlagSet(fs)
	require.NoError(t, err)
	assert.Equal(t, GridRandom, cfg.GridStrategy)
	assert.Equal(t, "hf_cli", cfg.APIKey)
}
