package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Store(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/files/")
	require.NoError(t, err)

	url, err := s.Store(context.Background(), "contracts/o/b/c.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "/files/contracts/o/b/c.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "contracts", "o", "b", "c.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/files")
	require.NoError(t, err)

	for _, p := range []string{"", "../x.pdf", "a/../../x.pdf", `a\b.pdf`, "/"} {
		_, err := s.Store(context.Background(), p, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestCloudinaryStorage_Store(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got = map[string]string{
			"public_id": r.FormValue("public_id"),
			"timestamp": r.FormValue("timestamp"),
			"signature": r.FormValue("signature"),
			"api_key":   r.FormValue("api_key"),
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(f)
		got["file"] = string(body)
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://res.example.com/raw/x.pdf"})
	}))
	defer srv.Close()

	s, err := NewCloudinaryStorage(CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "rental"})
	require.NoError(t, err)
	s.endpoint = srv.URL
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := s.Store(context.Background(), "contracts/o/b/c.pdf", []byte("doc"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example.com/raw/x.pdf", url)
	assert.Equal(t, "rental/contracts/o/b/c.pdf", got["public_id"])
	assert.Equal(t, "1700000000", got["timestamp"])
	assert.Equal(t, "key", got["api_key"])
	assert.Equal(t, s.sign("rental/contracts/o/b/c.pdf", "1700000000"), got["signature"])
	assert.Equal(t, "doc", got["file"])
}

func TestCloudinaryStorage_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	s, err := NewCloudinaryStorage(CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	s.endpoint = srv.URL

	_, err = s.Store(context.Background(), "c.pdf", []byte("doc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestNewCloudinaryStorage_RequiresCredentials(t *testing.T) {
	_, err := NewCloudinaryStorage(CloudinaryConfig{CloudName: "demo"})
	assert.Error(t, err)
}
