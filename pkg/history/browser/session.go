// Package browser drives native history in a real Chromium page through
// Playwright. All entries are pushed into a single document, so traversal
// between them surfaces as popstate and hashchange on the Go side.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/waypoint/pkg/logging"
)

const (
	// DefaultTimeout is the default page operation timeout in milliseconds.
	DefaultTimeout = 30000

	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Options configures the launched browser.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Width and Height set the viewport size
	Width  int
	Height int

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64

	// Install downloads the browser driver before starting it
	Install bool

	Logger *logging.Logger
}

// Session owns the Playwright driver and the single page backing a History.
type Session struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	closed     bool
}

// Launch starts Playwright, opens a Chromium page and loads href into it.
func Launch(href string, opts Options) (*History, error) {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = DefaultViewportWidth, DefaultViewportHeight
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard("browser")
	}

	// Driver output would corrupt the terminal UI.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{playwright: pw}
	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	s.page, err = s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.page.SetDefaultTimeout(opts.Timeout)

	h, err := newHistory(s, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.page.Goto(href); err != nil {
		h.Close()
		return nil, fmt.Errorf("navigation to %s failed: %w", href, err)
	}
	logger.Infof("browser history started at %s", s.page.URL())
	return h, nil
}

// Page returns the Playwright page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Close releases the page, the browser and the driver. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.playwright != nil {
		if err := s.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser session: %v", errs)
	}
	return nil
}
