package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hestia/models"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CollyOptions configures a CollyFetcher
type CollyOptions struct {
	UserAgent       string
	RandomUserAgent bool
	Timeout         time.Duration
}

// CollyFetcher performs GET, POST and POST_NDJSON requests using colly
type CollyFetcher struct {
	opts   CollyOptions
	logger *slog.Logger
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(opts CollyOptions, logger *slog.Logger) *CollyFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CollyFetcher{opts: opts, logger: logger}
}

// newCollector builds a collector bound to ctx. A fresh collector per request
// keeps callbacks from leaking between sources.
func (cf *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(cf.opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(cf.opts.Timeout)
	c.ParseHTTPErrorResponse = true

	if cf.opts.RandomUserAgent {
		extensions.RandomUserAgent(c)
	}
	extensions.Referer(c)
	return c
}

// request builds the method, body and headers for a source
func request(src models.Source) (string, io.Reader, http.Header, error) {
	hdr := http.Header{}
	for key, value := range src.Headers {
		hdr.Set(key, value)
	}

	switch strings.ToUpper(src.Method) {
	case models.MethodGet, "":
		return http.MethodGet, nil, hdr, nil
	case models.MethodPost:
		if hdr.Get("Content-Type") == "" {
			hdr.Set("Content-Type", "application/json")
		}
		var body bytes.Buffer
		if len(src.PostData) > 0 {
			body.Write(src.PostData)
		}
		return http.MethodPost, &body, hdr, nil
	case models.MethodPostNDJSON:
		payload, err := EncodeNDJSON(src.PostData)
		if err != nil {
			return "", nil, nil, err
		}
		if hdr.Get("Content-Type") == "" {
			hdr.Set("Content-Type", "application/x-ndjson")
		}
		return http.MethodPost, bytes.NewReader(payload), hdr, nil
	default:
		return "", nil, nil, fmt.Errorf("%w: %s", ErrUnknownMethod, src.Method)
	}
}

// Fetch implements the Fetcher interface. Any status other than 200 is a *StatusError.
func (cf *CollyFetcher) Fetch(ctx context.Context, src models.Source) ([]byte, error) {
	method, body, hdr, err := request(src)
	if err != nil {
		return nil, err
	}

	var (
		respBody []byte
		status   int
	)
	c := cf.newCollector(ctx)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		respBody = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		cf.logger.Debug("fetcher: request failed", "source", src.Agency, "url", src.QueryURL, "status", r.StatusCode, "error", err)
	})

	start := time.Now()
	if err := c.Request(method, src.QueryURL, body, nil, hdr); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src.QueryURL, err)
	}
	c.Wait()

	if status != http.StatusOK {
		return nil, &StatusError{URL: src.QueryURL, StatusCode: status}
	}

	cf.logger.Debug("fetcher: fetched",
		"source", src.Agency,
		"method", method,
		"bytes", len(respBody),
		"duration", time.Since(start))
	return respBody, nil
}
