package main

import (
	"context"
	"fmt"

	"github.com/entrhq/waypoint/pkg/agents"
	"github.com/entrhq/waypoint/pkg/config"
	"github.com/entrhq/waypoint/pkg/history/browser"
	"github.com/entrhq/waypoint/pkg/history/memory"
	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
	"github.com/entrhq/waypoint/pkg/pageload"
)

const (
	backendMemory  = "memory"
	backendBrowser = "browser"
)

type appOptions struct {
	Start    string
	Backend  string
	Headless bool
	// Fetcher overrides the HTTP fetcher built from configuration.
	Fetcher pageload.Fetcher
	Logger  *logging.Logger
}

// app wires a Navigation to a native history backend and the page loader.
type app struct {
	nav           *navigation.Navigation
	loader        *pageload.Loader
	load          *navigation.Param[*pageload.Subscription, pageload.Options]
	memory        *memory.History
	browser       *browser.History
	eventBuffer   int
	outlineLength int
	logger        *logging.Logger
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard("waypoint")
	}

	navCfg := config.GetNavigation()
	if navCfg == nil {
		navCfg = config.NewNavigationSection()
	}
	rulesCfg := config.GetRules()
	if rulesCfg == nil {
		rulesCfg = config.NewRulesSection()
	}
	loadCfg := config.GetPageLoad()
	if loadCfg == nil {
		loadCfg = config.NewPageLoadSection()
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		timeout, userAgent, maxBody := loadCfg.GetFetch()
		f := pageload.NewHTTPFetcher(timeout)
		f.UserAgent = userAgent
		f.MaxBody = int64(maxBody)
		fetcher = f
	}

	a := &app{
		eventBuffer:   navCfg.GetEventBuffer(),
		outlineLength: loadCfg.GetOutlineLength(),
		logger:        logger,
	}
	a.loader = pageload.NewLoader(fetcher,
		pageload.WithScheduler(pageload.AfterDelay(loadCfg.GetReleaseDelay())),
		pageload.WithLogger(logger.With("pageload")),
	)
	a.load = pageload.NewParam(a.loader)

	chain, err := agents.FromConfig(navCfg, rulesCfg, logger.With("agents"))
	if err != nil {
		return nil, fmt.Errorf("failed to build agent chain: %w", err)
	}

	var native navigation.NativeHistory
	switch opts.Backend {
	case "", backendMemory:
		a.memory = memory.New(opts.Start, nil, memory.WithLogger(logger.With("history")))
		native = a.memory
	case backendBrowser:
		a.browser, err = browser.Launch(opts.Start, browser.Options{
			Headless: opts.Headless,
			Install:  true,
			Logger:   logger.With("browser"),
		})
		if err != nil {
			return nil, err
		}
		native = a.browser
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}

	a.nav, err = navigation.New(native,
		navigation.WithAgents(chain),
		navigation.WithLogger(logger.With("navigation")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	// The initial page and pages recovered from untracked native entries
	// carry no params; start their loads here.
	if err := a.ensureLoad(a.nav.Current()); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load start page: %w", err)
	}
	a.nav.OnEnter(func(e navigation.EnterEvent) {
		if err := a.ensureLoad(e.Page); err != nil {
			logger.Warnf("failed to load %s: %v", e.Page.Href(), err)
		}
	})
	return a, nil
}

func (a *app) ensureLoad(page *navigation.Page) error {
	if _, ok := navigation.Get(page, a.load); ok {
		return nil
	}
	_, err := navigation.Put(page, a.load, pageload.Options{})
	return err
}

func (a *app) with() navigation.Mutator {
	return navigation.With(a.load, pageload.Options{})
}

func (a *app) open(ctx context.Context, target string) (*navigation.Page, error) {
	return a.nav.Open(ctx, target, a.with())
}

func (a *app) replace(ctx context.Context, target string) (*navigation.Page, error) {
	return a.nav.Replace(ctx, target, a.with())
}

// fragment moves to #frag the way a user clicking an anchor would.
func (a *app) fragment(ctx context.Context, frag string) error {
	if a.memory != nil {
		return a.memory.Fragment(frag)
	}
	_, err := a.open(ctx, "#"+frag)
	return err
}

// response waits for the current page's load.
func (a *app) response(ctx context.Context) (*pageload.Response, error) {
	return pageload.Wait(ctx, a.nav.Current(), a.load)
}

func (a *app) Close() error {
	if a.browser != nil {
		return a.browser.Close()
	}
	return nil
}
