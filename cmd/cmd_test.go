package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/config"
	"github.com/ghostmonk/storyfeed/internal/identity"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

func setVerbose(t *testing.T, v bool) {
	t.Helper()
	old := verbose
	verbose = v
	t.Cleanup(func() { verbose = old })
}

func TestRenderErrorFriendly(t *testing.T) {
	setVerbose(t, false)
	derr := apierror.ClassifyResponse(http.StatusNotFound, []byte(`{"detail":"Story not found"}`))

	var buf bytes.Buffer
	renderError(&buf, derr)

	out := buf.String()
	assert.Contains(t, out, "Error: Story not found")
	assert.Contains(t, out, "Refresh the list and try again.")
	assert.NotContains(t, out, "code:", "technical detail needs --verbose")
	assert.NotContains(t, out, "raw:")
}

func TestRenderErrorVerbose(t *testing.T) {
	setVerbose(t, true)
	derr := apierror.ClassifyResponse(http.StatusNotFound, []byte(`{"detail":"Story not found"}`))

	var buf bytes.Buffer
	renderError(&buf, derr)

	out := buf.String()
	assert.Contains(t, out, "code: NOT_FOUND")
	assert.Contains(t, out, "http status: 404")
	assert.Contains(t, out, `raw: {"detail":"Story not found"}`)
}

func TestRenderErrorPlain(t *testing.T) {
	setVerbose(t, false)
	var buf bytes.Buffer
	renderError(&buf, errors.New("flag needs an argument"))
	assert.Equal(t, "Error: flag needs an argument\n", buf.String())
}

func TestFetchStoryFallsBackToSlug(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stories/the-ref", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Story not found"}`))
	})
	mux.HandleFunc("/stories/slug/the-ref", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123","title":"Found by slug","slug":"the-ref"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api := client.New(srv.URL, identity.NewStatic(""), logger.NewNop())
	story, err := fetchStory(context.Background(), api, "the-ref")
	require.NoError(t, err)
	assert.Equal(t, "abc123", story.ID)
	assert.Equal(t, "Found by slug", story.Title)
}

func TestFetchStoryOnlyNotFoundTriggersFallback(t *testing.T) {
	var slugCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/stories/the-ref", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/stories/slug/the-ref", func(w http.ResponseWriter, r *http.Request) {
		slugCalls.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api := client.New(srv.URL, identity.NewStatic(""), logger.NewNop())
	_, err := fetchStory(context.Background(), api, "the-ref")
	require.Error(t, err)

	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeServerError, derr.Code)
	assert.Equal(t, int32(0), slugCalls.Load(), "a server error must not trigger the slug lookup")
}

func TestBuildProviderPrecedence(t *testing.T) {
	log := logger.NewNop()

	t.Run("static token wins", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.API.Token = "static-tok"
		cfg.API.TokenFile = "/nonexistent"
		cfg.API.AuthSecret = "secret"

		provider, closer, err := buildProvider(cfg, log)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, "static-tok", provider.Current().Token)
	})

	t.Run("token file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("file-tok\n"), 0o600))

		cfg := &config.Config{}
		cfg.API.TokenFile = path

		provider, closer, err := buildProvider(cfg, log)
		require.NoError(t, err)
		require.NotNil(t, closer)
		defer func() { require.NoError(t, closer()) }()

		assert.Equal(t, "file-tok", provider.Current().Token)
	})

	t.Run("service token", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.API.AuthSecret = "signing-secret"
		cfg.API.ServiceName = "storyfeed-cli"

		provider, closer, err := buildProvider(cfg, log)
		require.NoError(t, err)
		assert.Nil(t, closer)

		cred := provider.Current()
		require.True(t, cred.Present())
		assert.Equal(t, 2, strings.Count(cred.Token, "."), "expected a JWT")
	})

	t.Run("anonymous", func(t *testing.T) {
		provider, closer, err := buildProvider(&config.Config{}, log)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.False(t, provider.Current().Present())
	})
}
