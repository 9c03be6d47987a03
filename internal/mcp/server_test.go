package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-filler/internal/apply"
	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/oracle"
	"github.com/a3tai/mcp-form-filler/internal/settings"
	"github.com/a3tai/mcp-form-filler/internal/source"
)

const testKey = "hf_abcdefghijklmnop"

const surveyPage = `<html><body><div role="list">
<div role="listitem">
  <div role="heading">Favourite colour?</div>
  <label><input type="radio" name="c" id="red">Red</label>
  <label><input type="radio" name="c" id="green">Green</label>
  <label><input type="radio" name="c" id="blue">Blue</label>
</div>
<div role="listitem"><div role="heading">Empty container</div></div>
</div></body></html>`

type fixedOracle struct {
	reply string
	calls int
}

func (o *fixedOracle) Ask(context.Context, string) (string, error) {
	o.calls++
	return o.reply, nil
}

type fixture struct {
	dir    string
	cfg    *config.Config
	store  *settings.Store
	oracle *fixedOracle
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "survey.html"), []byte(surveyPage), 0o600))

	cfg := config.DefaultConfig()
	cfg.FormDirectory = dir
	cfg.SettingsPath = filepath.Join(t.TempDir(), "settings.yaml")
	cfg.ServerName = "test-server"

	files, err := source.NewFiles(dir, cfg.MaxFileSize)
	require.NoError(t, err)
	store, err := settings.Open(cfg.SettingsPath)
	require.NoError(t, err)

	orc := &fixedOracle{reply: "C"}
	srv, err := NewServer(cfg, Deps{
		Files:    files,
		Settings: store,
		EngineOptions: []fill.Option{
			fill.WithOracleFactory(func(string) (oracle.Oracle, error) { return orc, nil }),
			fill.WithPacer(fill.NewPacer(0)),
			fill.WithApplier(apply.NewRegistry(apply.Timing{})),
		},
	})
	require.NoError(t, err)
	return &fixture{dir: dir, cfg: cfg, store: store, oracle: orc, server: srv}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	files, err := source.NewFiles(dir, 1024)
	require.NoError(t, err)
	store, err := settings.Open(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)
	cfg := config.DefaultConfig()

	tests := []struct {
		name    string
		cfg     *config.Config
		deps    Deps
		wantErr string
	}{
		{name: "valid", cfg: cfg, deps: Deps{Files: files, Settings: store}},
		{name: "nil config", deps: Deps{Files: files, Settings: store}, wantErr: "config"},
		{name: "missing files", cfg: cfg, deps: Deps{Settings: store}, wantErr: "form files"},
		{name: "missing settings", cfg: cfg, deps: Deps{Files: files}, wantErr: "settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(tt.cfg, tt.deps)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.cfg, srv.config)
			assert.NotNil(t, srv.mcpServer)
			assert.NotNil(t, srv.logger)
		})
	}
}

func TestServer_ToolsRegistered(t *testing.T) {
	f := newFixture(t)

	msg := f.server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, name := range []string{"form_fill", "form_extract", "form_list", "form_settings", "form_server_info"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}

func TestServer_HandleFormFill(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetAPIKey("huggingface", testKey))

	result, err := f.server.handleFormFill(context.Background(), callRequest("form_fill", map[string]any{
		"path": "survey.html",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	text := resultText(t, result)
	assert.Contains(t, text, "Successfully filled 1 out of 1 questions")
	assert.Contains(t, text, "Answer: Blue")
	assert.Contains(t, text, "Saved:")
	assert.Equal(t, 1, f.oracle.calls)

	data, err := os.ReadFile(filepath.Join(f.dir, "survey.filled.html"))
	require.NoError(t, err)
	assert.Regexp(t, `id="blue"[^>]*checked=""|checked=""[^>]*id="blue"`, string(data))
}

func TestServer_HandleFormFill_CustomOutput(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleFormFill(context.Background(), callRequest("form_fill", map[string]any{
		"path":    "survey.html",
		"output":  "out/answers.html",
		"api_key": testKey,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.FileExists(t, filepath.Join(f.dir, "out", "answers.html"))
}

func TestServer_HandleFormFill_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		key     string
		wantErr string
	}{
		{name: "no target", args: map[string]any{}, key: testKey, wantErr: "either path or url"},
		{name: "no key", args: map[string]any{"path": "survey.html"}, wantErr: "no API key configured"},
		{name: "missing file", args: map[string]any{"path": "missing.html"}, key: testKey, wantErr: "cannot access file"},
		{name: "outside directory", args: map[string]any{"path": "../x.html"}, key: testKey, wantErr: "outside configured directory"},
		{name: "not a form url", args: map[string]any{"url": "https://example.com"}, key: testKey, wantErr: "Google Form"},
		{
			name:    "no browser",
			args:    map[string]any{"url": "https://docs.google.com/forms/d/e/x/viewform"},
			key:     testKey,
			wantErr: "no browser configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.APIKey = tt.key

			result, err := f.server.handleFormFill(context.Background(), callRequest("form_fill", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantErr)
			assert.Zero(t, f.oracle.calls)
		})
	}
}

func TestServer_HandleFormFill_RejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	f.cfg.APIKey = testKey

	release, err := f.server.acquire(filepath.Join(f.dir, "survey.html"))
	require.NoError(t, err)

	result, err := f.server.handleFormFill(context.Background(), callRequest("form_fill", map[string]any{
		"path": "survey.html",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), ErrRunInProgress.Error())

	release()
	result, err = f.server.handleFormFill(context.Background(), callRequest("form_fill", map[string]any{
		"path": "survey.html",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestServer_Acquire(t *testing.T) {
	f := newFixture(t)

	release, err := f.server.acquire("a")
	require.NoError(t, err)
	_, err = f.server.acquire("a")
	assert.ErrorIs(t, err, ErrRunInProgress)

	other, err := f.server.acquire("b")
	require.NoError(t, err)
	other()

	release()
	again, err := f.server.acquire("a")
	require.NoError(t, err)
	again()
}

func TestServer_ProgressObserver(t *testing.T) {
	f := newFixture(t)

	assert.Nil(t, f.server.progressObserver(callRequest("form_fill", nil)))

	req := callRequest("form_fill", nil)
	req.Params.Meta = &mcp.Meta{ProgressToken: "tok"}
	observer := f.server.progressObserver(req)
	require.NotNil(t, observer)
	// No client session in the context: delivery is dropped.
	observer.Progress(context.Background(), fill.Progress{Current: 1, Total: 2, Question: "Q"})
}

func TestServer_HandleFormExtract(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleFormExtract(context.Background(), callRequest("form_extract", map[string]any{
		"path": "survey.html",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Favourite colour? (single_choice)")
	assert.Contains(t, text, "Red | Green | Blue")
	assert.Contains(t, text, "Skipped containers")
	assert.Zero(t, f.oracle.calls)

	result, err = f.server.handleFormExtract(context.Background(), callRequest("form_extract", map[string]any{
		"path":   "survey.html",
		"format": "json",
	}))
	require.NoError(t, err)
	var decoded struct {
		Questions []struct {
			Text    string   `json:"text"`
			Options []string `json:"options"`
		} `json:"questions"`
		Containers int `json:"containers"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	require.Len(t, decoded.Questions, 1)
	assert.Equal(t, []string{"Red", "Green", "Blue"}, decoded.Questions[0].Options)
	assert.Equal(t, 2, decoded.Containers)
}

func TestServer_HandleFormList(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("x"), 0o600))

	result, err := f.server.handleFormList(context.Background(), callRequest("form_list", nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Found 1 form page(s)")
	assert.Contains(t, text, "survey.html")
	assert.NotContains(t, text, "notes.txt")
}

func TestServer_HandleFormSettings(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleFormSettings(context.Background(), callRequest("form_settings", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "not configured")

	for _, bad := range []string{"", "   ", "sk-notvalid"} {
		result, err = f.server.handleFormSettings(context.Background(), callRequest("form_settings", map[string]any{"api_key": bad}))
		require.NoError(t, err)
		assert.True(t, result.IsError, bad)
	}

	result, err = f.server.handleFormSettings(context.Background(), callRequest("form_settings", map[string]any{"api_key": testKey}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.NotContains(t, resultText(t, result), testKey)

	reopened, err := settings.Open(f.cfg.SettingsPath)
	require.NoError(t, err)
	assert.Equal(t, testKey, reopened.APIKey())

	result, err = f.server.handleFormSettings(context.Background(), callRequest("form_settings", nil))
	require.NoError(t, err)
	status := resultText(t, result)
	assert.Contains(t, status, settings.Mask(testKey))
	assert.Contains(t, status, "settings file")
}

func TestServer_HandleFormServerInfo(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleFormServerInfo(context.Background(), callRequest("form_server_info", nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "📋 test-server v"))
	assert.Contains(t, text, "survey.html")
	assert.Contains(t, text, "API key: not configured")
	assert.Contains(t, text, "Live forms: disabled")
	for _, name := range []string{"form_fill", "form_extract", "form_list", "form_settings", "form_server_info"} {
		assert.Contains(t, text, name)
	}
}

func TestServer_Run_ServerModeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.cfg.Mode = config.ModeServer
	f.cfg.Host = "127.0.0.1"
	f.cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, f.server.Run(ctx))
}
