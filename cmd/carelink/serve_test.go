package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink/internal/config"
	"carelink/internal/db"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Server.JWTSecret = "s"
	cfg.Database.DSN = "file:serve_test?mode=memory&cache=shared"
	return cfg
}

func TestBuildRouter(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, db.Init(cfg))

	r, cleanup, err := buildRouter(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestBuildRouter_UnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Engine = "oracle"
	_, _, err := buildRouter(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, runServer(ctx, cfg))
}
