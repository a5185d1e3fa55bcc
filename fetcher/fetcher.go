package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hestia/models"
)

// ErrUnknownMethod is returned for a source whose method no fetcher supports
var ErrUnknownMethod = errors.New("unknown fetch method")

// Fetcher retrieves the raw response body for a source
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source) ([]byte, error)
}

// StatusError is returned when a source answers with a non-200 status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: unexpected status %d from %s", e.StatusCode, e.URL)
}

// Dispatcher routes a source to the HTTP fetcher or, for the RENDER method,
// to the browser renderer
type Dispatcher struct {
	http   Fetcher
	render Fetcher
}

// NewDispatcher creates a Dispatcher. render may be nil when no source needs it.
func NewDispatcher(http, render Fetcher) *Dispatcher {
	return &Dispatcher{http: http, render: render}
}

// Fetch implements the Fetcher interface
func (d *Dispatcher) Fetch(ctx context.Context, src models.Source) ([]byte, error) {
	if strings.EqualFold(src.Method, models.MethodRender) {
		if d.render == nil {
			return nil, fmt.Errorf("%w: %s (no renderer configured)", ErrUnknownMethod, src.Method)
		}
		return d.render.Fetch(ctx, src)
	}
	return d.http.Fetch(ctx, src)
}

// EncodeNDJSON turns a JSON array into newline-delimited JSON: every element
// compacted on its own line, with a trailing newline
func EncodeNDJSON(data json.RawMessage) ([]byte, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("post data of an NDJSON source must be a JSON array: %w", err)
	}

	var buf bytes.Buffer
	for _, element := range elements {
		if err := json.Compact(&buf, element); err != nil {
			return nil, fmt.Errorf("failed to compact NDJSON element: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
