// Package httputil provides the request headers and URL helpers shared by
// the status server and its client.
package httputil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	RequestHeaderContentType    = "Content-Type"
	RequestHeaderJSON           = "application/json"
	RequestHeaderYAML           = "application/yaml"
	RequestHeaderJSONIndent     = "json-indent"
	RequestHeaderAcceptEncoding = "Accept-Encoding"
	RequestHeaderEncodingGzip   = "gzip"
)

// CreateURL joins a server address and a path into a URL.
// An address without scheme defaults to "http", and one without host
// (e.g., ":15140") defaults to "localhost".
func CreateURL(addr string, path string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("empty address")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, path), nil
}
