package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantErr  error
	}{
		{name: "valid hf key", provider: "huggingface", key: "hf_abcdef", wantErr: nil},
		{name: "default provider", provider: "", key: "hf_abcdef", wantErr: nil},
		{name: "empty", provider: "huggingface", key: "   ", wantErr: ErrEmptyKey},
		{name: "wrong prefix", provider: "huggingface", key: "sk-abc", wantErr: ErrInvalidKeyFormat},
		{name: "gemini has no prefix rule", provider: "gemini", key: "AIzaSy123", wantErr: nil},
		{name: "gemini empty", provider: "gemini", key: "", wantErr: ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.provider, tt.key)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "*****", Mask("short"))
	assert.Equal(t, "hf_*******wxyz", Mask("hf_abcdefgwxyz"))
	assert.Equal(t, "*****6789", Mask("AIza56789"))
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	store, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, store.APIKey())

	require.NoError(t, store.SetAPIKey("huggingface", "  hf_secret123 "))
	assert.Equal(t, "hf_secret123", store.APIKey())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "hf_secret123", reopened.APIKey())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "huggingface_api_key: hf_secret123")
}

func TestStore_RejectsInvalidKey(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.SetAPIKey("huggingface", "nope"), ErrInvalidKeyFormat)
	_, ok := store.Get(APIKeyEntry)
	assert.False(t, ok)
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Delete(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.Set("theme", "dark"))
	require.NoError(t, store.Delete("theme"))
	require.NoError(t, store.Delete("missing"))

	_, ok := store.Get("theme")
	assert.False(t, ok)
}

func TestOpen_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.SetAPIKey("huggingface", "hf_stored"))

	assert.Equal(t, "hf_arg", ResolveAPIKey("hf_arg", "hf_cfg", store))
	assert.Equal(t, "hf_cfg", ResolveAPIKey(" ", "hf_cfg", store))
	assert.Equal(t, "hf_stored", ResolveAPIKey("", "", store))
	assert.Equal(t, "", ResolveAPIKey("", "", nil))
}
