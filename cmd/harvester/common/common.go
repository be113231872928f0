// Package common provides the helpers shared by the harvester commands.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	CheckMark   = "\033[32m✔\033[0m"
	WarningSign = "\033[31m✘\033[0m"
)

const (
	OutputFormatPlain = "plain"
	OutputFormatJSON  = "json"
)

// ParseOutputFormat validates and normalizes output format values.
// Empty values default to plain output.
func ParseOutputFormat(raw string) (string, error) {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	if normalized == "" {
		return OutputFormatPlain, nil
	}

	switch normalized {
	case OutputFormatPlain, OutputFormatJSON:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid output format %q (supported: %q, %q)", raw, OutputFormatPlain, OutputFormatJSON)
	}
}

func WriteJSON(w io.Writer, v any) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
