package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"hestia/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodOptions configures a RodFetcher
type RodOptions struct {
	UserAgent     string
	DataDir       string
	RenderTimeout time.Duration
}

// RodFetcher renders pages in a headless browser for sources using the
// RENDER method. The browser is launched on first use.
type RodFetcher struct {
	opts    RodOptions
	logger  *slog.Logger
	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodFetcher creates a new RodFetcher instance
func NewRodFetcher(opts RodOptions, logger *slog.Logger) *RodFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RodFetcher{opts: opts, logger: logger}
}

var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
}

// connect launches and connects to the browser if that has not happened yet
func (rf *RodFetcher) connect() (*rod.Browser, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.browser != nil {
		return rf.browser, nil
	}

	userDataDir := rf.opts.DataDir
	if userDataDir != "" {
		if err := os.MkdirAll(userDataDir, 0755); err != nil {
			rf.logger.Warn("fetcher: failed to create browser data directory", "dir", userDataDir, "error", err)
			userDataDir = ""
		}
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-sync").
		Set("disable-translate").
		Set("mute-audio").
		Set("no-zygote").
		Set("memory-pressure-off").
		Set("disable-features", "TranslateUI,BlinkGenPropertyTrees")
	if userDataDir != "" {
		l = l.UserDataDir(userDataDir)
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	rf.logger.Info("fetcher: browser launched", "control_url", browserURL)
	rf.browser = browser
	return browser, nil
}

// Close closes the browser
func (rf *RodFetcher) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.browser == nil {
		return nil
	}
	err := rf.browser.Close()
	rf.browser = nil
	return err
}

// Fetch implements the Fetcher interface. It returns the rendered HTML of the
// source's query URL.
func (rf *RodFetcher) Fetch(ctx context.Context, src models.Source) ([]byte, error) {
	browser, err := rf.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(rf.opts.RenderTimeout)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rf.opts.UserAgent}); err != nil {
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}
	if len(src.Headers) > 0 {
		var dict []string
		for key, value := range src.Headers {
			dict = append(dict, key, value)
		}
		cleanup, err := page.SetExtraHeaders(dict)
		if err != nil {
			return nil, fmt.Errorf("failed to set headers: %w", err)
		}
		defer cleanup()
	}

	start := time.Now()
	if err := page.Navigate(src.QueryURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", src.QueryURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.QueryURL, err)
	}
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		rf.logger.Warn("fetcher: page did not stabilize, continuing anyway", "source", src.Agency, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	rf.logger.Debug("fetcher: rendered",
		"source", src.Agency,
		"bytes", len(html),
		"duration", time.Since(start))
	return []byte(html), nil
}
