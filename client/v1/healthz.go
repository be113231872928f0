package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leptonai/harvester/pkg/httputil"
	"github.com/leptonai/harvester/pkg/server"
)

var ErrServerNotReady = errors.New("server not ready, timeout waiting")

// CheckHealthz returns nil if the server at addr reports healthy.
func CheckHealthz(ctx context.Context, addr string, opts ...OpOption) error {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return err
	}
	return checkHealthz(ctx, op.httpClient, addr)
}

func checkHealthz(ctx context.Context, cli *http.Client, addr string) error {
	u, err := httputil.CreateURL(addr, server.URLPathHealthz)
	if err != nil {
		return fmt.Errorf("failed to create url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	exp, err := json.Marshal(server.DefaultHealthz)
	if err != nil {
		return fmt.Errorf("failed to marshal expected healthz response: %w", err)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request to /healthz: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server not ready, response not 200")
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read healthz response: %w", err)
	}
	if !bytes.Equal(b, exp) {
		return fmt.Errorf("unexpected healthz response: %s", string(b))
	}
	return nil
}

// BlockUntilServerReady polls /healthz until the server is healthy,
// ctx is done, or 30 checks have failed.
func BlockUntilServerReady(ctx context.Context, addr string, opts ...OpOption) error {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return err
	}

	if err := checkHealthz(ctx, op.httpClient, addr); err == nil {
		return nil
	}

	ticker := time.NewTicker(op.checkInterval)
	defer ticker.Stop()

	for range 30 {
		select {
		case <-ticker.C:
			if err := checkHealthz(ctx, op.httpClient, addr); err == nil {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("context done: %w", ctx.Err())
		}
	}
	return ErrServerNotReady
}
