package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/dom/roddoc"
)

// FormURLMarker identifies hosted survey forms.
const FormURLMarker = "docs.google.com/forms"

// ErrNotAForm is returned for live URLs that are not survey forms.
var ErrNotAForm = errors.New("please navigate to a Google Form first")

// CheckFormURL refuses URLs outside the form host unless allowAny is set.
func CheckFormURL(url string, allowAny bool) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("url cannot be empty")
	}
	if allowAny || strings.Contains(url, FormURLMarker) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotAForm, url)
}

// BrowserOptions selects how the browser is reached.
type BrowserOptions struct {
	// ControlURL is the DevTools URL of a running browser. Empty launches one.
	ControlURL string
	Headless   bool
}

// Browser lazily connects to Chrome and opens form pages.
type Browser struct {
	opts   BrowserOptions
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowser creates an unconnected browser source.
func NewBrowser(opts BrowserOptions, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{opts: opts, logger: logger}
}

// Page is an opened live form.
type Page struct {
	URL  string
	Doc  *roddoc.Document
	page *rod.Page
}

// Close closes the browser tab.
func (p *Page) Close() error {
	return p.page.Close()
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return b.browser, nil
		}
		b.logger.Warn("stale browser connection, reconnecting")
		_ = b.browser.Close()
		b.browser = nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		url, err := launcher.New().Headless(b.opts.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	b.logger.Info("browser connected", zap.Bool("launched", b.opts.ControlURL == ""))
	b.browser = browser
	return browser, nil
}

// Open navigates a new tab to url and waits for it to load. The caller
// closes the returned page.
func (b *Browser) Open(ctx context.Context, url string, allowAny bool) (*Page, error) {
	if err := CheckFormURL(url, allowAny); err != nil {
		return nil, err
	}
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait for %s: %w", url, err)
	}
	b.logger.Debug("form page loaded", zap.String("url", url))
	return &Page{URL: url, Doc: roddoc.New(page).WithContext(ctx), page: page}, nil
}

// Close disconnects from the browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
