package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateURL(t *testing.T) {
	tests := []struct {
		addr string
		path string
		want string
	}{
		{addr: ":15140", path: "/healthz", want: "http://localhost:15140/healthz"},
		{addr: "localhost:15140", path: "/v1/status", want: "http://localhost:15140/v1/status"},
		{addr: "http://10.0.0.1:8080", path: "/metrics", want: "http://10.0.0.1:8080/metrics"},
		{addr: "https://example.com/ignored", path: "/healthz", want: "https://example.com/healthz"},
		{addr: " 127.0.0.1:1 ", path: "", want: "http://127.0.0.1:1"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := CreateURL(tt.addr, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateURLErrors(t *testing.T) {
	_, err := CreateURL("", "/healthz")
	assert.Error(t, err)

	_, err = CreateURL("http://", "/healthz")
	assert.Error(t, err)
}
