package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HuggingFace {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.Endpoint = srv.URL
	return NewHuggingFace("hf_test", opts, nil)
}

func TestHuggingFace_Ask(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text":"Pick one: B  "}]`))
	})

	reply, err := client.Ask(context.Background(), "Pick one:")
	require.NoError(t, err)
	assert.Equal(t, "B", reply)

	assert.Equal(t, "Pick one:", got.Inputs)
	assert.Equal(t, 20, got.Parameters.MaxNewTokens)
	assert.InDelta(t, 0.3, got.Parameters.Temperature, 1e-9)
	assert.True(t, got.Parameters.DoSample)
}

func TestHuggingFace_RemovesPromptOnce(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"generated_text":"Q? Q? yes"}]`))
	})

	reply, err := client.Ask(context.Background(), "Q?")
	require.NoError(t, err)
	assert.Equal(t, "Q? yes", reply)
}

func TestHuggingFace_EmptyGeneratedTextIsReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"generated_text":""}]`))
	})

	reply, err := client.Ask(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestHuggingFace_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Invalid token"}`, wantType: ErrorTypeStatus},
		{name: "model_loading", status: http.StatusServiceUnavailable, body: `{"error":"loading"}`, wantType: ErrorTypeStatus},
		{name: "object_not_list", status: http.StatusOK, body: `{"generated_text":"x"}`, wantType: ErrorTypeSchema},
		{name: "empty_list", status: http.StatusOK, body: `[]`, wantType: ErrorTypeSchema},
		{name: "two_results", status: http.StatusOK, body: `[{"generated_text":"a"},{"generated_text":"b"}]`, wantType: ErrorTypeSchema},
		{name: "missing_key", status: http.StatusOK, body: `[{"text":"a"}]`, wantType: ErrorTypeSchema},
		{name: "not_json", status: http.StatusOK, body: `<html>`, wantType: ErrorTypeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Ask(context.Background(), "prompt")
			require.Error(t, err)
			var oe *Error
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tt.wantType, oe.Type)
			assert.Equal(t, ProviderHuggingFace, oe.Provider)
		})
	}
}

func TestHuggingFace_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	opts := DefaultOptions()
	opts.Endpoint = srv.URL
	srv.Close()

	_, err := NewHuggingFace("hf_test", opts, nil).Ask(context.Background(), "prompt")
	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, ErrorTypeTransport, oe.Type)
}

func TestHuggingFace_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"generated_text":"x"}]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Ask(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactory(t *testing.T) {
	factory := NewFactory(DefaultOptions(), nil)

	o, err := factory("")
	require.NoError(t, err)
	_, err = o.Ask(context.Background(), "prompt")
	assert.True(t, IsCredentialError(err))
	assert.ErrorIs(t, err, ErrMissingCredential)

	o, err = factory("hf_abc")
	require.NoError(t, err)
	assert.IsType(t, &HuggingFace{}, o)

	opts := DefaultOptions()
	opts.Provider = "openai"
	_, err = NewFactory(opts, nil)("key")
	assert.Error(t, err)
}

func TestErrorString(t *testing.T) {
	err := &Error{Type: ErrorTypeStatus, Provider: ProviderHuggingFace, StatusCode: 401, Message: "Invalid token"}
	assert.Equal(t, "[STATUS] huggingface: Invalid token (status 401)", err.Error())
	assert.Equal(t, "CREDENTIAL", ErrorTypeCredential.String())
}
