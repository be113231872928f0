package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/leptonai/harvester/api/v1"
	"github.com/leptonai/harvester/pkg/config"
	"github.com/leptonai/harvester/pkg/server"
)

type staticStatus apiv1.Status

func (s staticStatus) Status() apiv1.Status {
	return apiv1.Status(s)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.DefaultConfig(config.WithDirectory("/var/log/app"))
	require.NoError(t, err)

	st := staticStatus{
		Directory:         "/var/log/app",
		LineThreshold:     10,
		HeartbeatInterval: "10s",
		Files: []apiv1.FileStatus{
			{Path: "/var/log/app/a.log", Name: "a.log", Offset: 10, Size: 12, BufferedLines: 1},
			{Path: "/var/log/app/b.log", Name: "b.log", Offset: 0, Size: 0},
		},
	}
	srv, err := server.New(cfg, st, prometheus.NewRegistry())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts []OpOption
	}{
		{name: "default"},
		{name: "json", opts: []OpOption{WithRequestContentTypeJSON()}},
		{name: "yaml", opts: []OpOption{WithRequestContentTypeYAML()}},
		{name: "json gzip", opts: []OpOption{WithAcceptEncodingGzip()}},
		{name: "yaml gzip", opts: []OpOption{WithRequestContentTypeYAML(), WithAcceptEncodingGzip()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := GetStatus(ctx, ts.URL, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, "/var/log/app", st.Directory)
			assert.Len(t, st.Files, 2)
			assert.Equal(t, 1, st.BufferedLines())
		})
	}
}

func TestGetFiles(t *testing.T) {
	ts := newTestServer(t)

	files, err := GetFiles(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.log", files[0].Name)
	assert.Equal(t, int64(12), files[0].Size)
}

func TestGetStatusErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := GetStatus(context.Background(), ts.URL)
	assert.Error(t, err)

	_, err = GetStatus(context.Background(), "")
	assert.Error(t, err)
}

func TestCheckHealthz(t *testing.T) {
	ts := newTestServer(t)
	assert.NoError(t, CheckHealthz(context.Background(), ts.URL))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer bad.Close()
	assert.Error(t, CheckHealthz(context.Background(), bad.URL))
}

func TestBlockUntilServerReady(t *testing.T) {
	ts := newTestServer(t)
	assert.NoError(t, BlockUntilServerReady(context.Background(), ts.URL))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := BlockUntilServerReady(ctx, down.URL, WithCheckInterval(10*time.Millisecond))
	assert.Error(t, err)

	err = BlockUntilServerReady(context.Background(), down.URL, WithCheckInterval(time.Millisecond))
	assert.ErrorIs(t, err, ErrServerNotReady)
}
