package v1

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sigs.k8s.io/yaml"

	apiv1 "github.com/leptonai/harvester/api/v1"
	"github.com/leptonai/harvester/pkg/httputil"
	"github.com/leptonai/harvester/pkg/server"
)

// GetStatus fetches the status of the harvester listening on addr.
func GetStatus(ctx context.Context, addr string, opts ...OpOption) (apiv1.Status, error) {
	var st apiv1.Status
	err := get(ctx, addr, server.URLPathV1Status, &st, opts...)
	return st, err
}

// GetFiles fetches the files tailed by the harvester listening on addr.
func GetFiles(ctx context.Context, addr string, opts ...OpOption) ([]apiv1.FileStatus, error) {
	var files []apiv1.FileStatus
	err := get(ctx, addr, server.URLPathV1Files, &files, opts...)
	return files, err
}

func get(ctx context.Context, addr string, path string, v any, opts ...OpOption) error {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return err
	}

	u, err := httputil.CreateURL(addr, path)
	if err != nil {
		return fmt.Errorf("failed to create url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if op.requestContentType != "" {
		req.Header.Set(httputil.RequestHeaderContentType, op.requestContentType)
	}
	if op.requestAcceptEncoding != "" {
		req.Header.Set(httputil.RequestHeaderAcceptEncoding, op.requestAcceptEncoding)
	}

	resp, err := op.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, path)
	}

	return read(resp.Body, resp.Header.Get("Content-Encoding"), op.requestContentType, v)
}

// read decodes the body. The transport undoes gzip by itself unless the
// caller asked for it explicitly, in which case the body arrives compressed.
func read(rd io.Reader, contentEncoding string, contentType string, v any) error {
	if contentEncoding == httputil.RequestHeaderEncodingGzip {
		gr, err := gzip.NewReader(rd)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		rd = gr
	}

	switch contentType {
	case httputil.RequestHeaderJSON, "":
		if err := json.NewDecoder(rd).Decode(v); err != nil {
			return fmt.Errorf("failed to decode json: %w", err)
		}
	case httputil.RequestHeaderYAML:
		b, err := io.ReadAll(rd)
		if err != nil {
			return fmt.Errorf("failed to read yaml: %w", err)
		}
		if err := yaml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported content type: %s", contentType)
	}
	return nil
}
