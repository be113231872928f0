// Package v1 provides the client of the harvester status server.
package v1

import (
	"net/http"
	"time"

	"github.com/leptonai/harvester/pkg/httputil"
)

type Op struct {
	httpClient            *http.Client
	requestContentType    string
	requestAcceptEncoding string
	checkInterval         time.Duration
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	if op.httpClient == nil {
		op.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if op.checkInterval <= 0 {
		op.checkInterval = time.Second
	}
	return nil
}

func WithHTTPClient(cli *http.Client) OpOption {
	return func(op *Op) {
		op.httpClient = cli
	}
}

// WithCheckInterval sets the interval between two health checks
// in BlockUntilServerReady.
func WithCheckInterval(interval time.Duration) OpOption {
	return func(op *Op) {
		op.checkInterval = interval
	}
}

// WithRequestContentTypeYAML sets the request content type to YAML.
func WithRequestContentTypeYAML() OpOption {
	return func(op *Op) {
		op.requestContentType = httputil.RequestHeaderYAML
	}
}

// WithRequestContentTypeJSON sets the request content type to JSON.
func WithRequestContentTypeJSON() OpOption {
	return func(op *Op) {
		op.requestContentType = httputil.RequestHeaderJSON
	}
}

// WithAcceptEncodingGzip requests gzip encoding for the response.
func WithAcceptEncodingGzip() OpOption {
	return func(op *Op) {
		op.requestAcceptEncoding = httputil.RequestHeaderEncodingGzip
	}
}
