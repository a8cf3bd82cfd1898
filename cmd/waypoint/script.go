package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/waypoint/pkg/navigation"
)

const traversalTimeout = 5 * time.Second

// Script is a recorded navigation session.
type Script struct {
	Start string `yaml:"start"`
	Steps []Step `yaml:"steps"`
}

// Step is one action. Exactly one field may be set.
type Step struct {
	Open     string        `yaml:"open,omitempty"`
	Replace  string        `yaml:"replace,omitempty"`
	Fragment string        `yaml:"fragment,omitempty"`
	Back     int           `yaml:"back,omitempty"`
	Forward  int           `yaml:"forward,omitempty"`
	Reload   bool          `yaml:"reload,omitempty"`
	Wait     time.Duration `yaml:"wait,omitempty"`
	Expect   string        `yaml:"expect,omitempty"`
	Outline  bool          `yaml:"outline,omitempty"`
	Links    int           `yaml:"links,omitempty"`
	Source   bool          `yaml:"source,omitempty"`
}

func (s Step) action() (string, error) {
	var set []string
	add := func(name string, ok bool) {
		if ok {
			set = append(set, name)
		}
	}
	add("open", s.Open != "")
	add("replace", s.Replace != "")
	add("fragment", s.Fragment != "")
	add("back", s.Back != 0)
	add("forward", s.Forward != 0)
	add("reload", s.Reload)
	add("wait", s.Wait != 0)
	add("expect", s.Expect != "")
	add("outline", s.Outline)
	add("links", s.Links != 0)
	add("source", s.Source)

	switch len(set) {
	case 0:
		return "", fmt.Errorf("step has no action")
	case 1:
		return set[0], nil
	default:
		return "", fmt.Errorf("step has several actions: %s", strings.Join(set, ", "))
	}
}

// LoadScript reads and validates a YAML script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if s.Start == "" {
		return nil, fmt.Errorf("script start url is required")
	}
	for i, step := range s.Steps {
		if _, err := step.action(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

type scriptOptions struct {
	// Color enables syntax highlighting of page source.
	Color bool
	Style string
}

type scriptRunner struct {
	app    *app
	out    io.Writer
	opts   scriptOptions
	events <-chan navigation.Event
}

func runScript(ctx context.Context, a *app, s *Script, out io.Writer, opts scriptOptions) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &scriptRunner{
		app:    a,
		out:    out,
		opts:   opts,
		events: a.nav.Watch(watchCtx, max(a.eventBuffer, 8)),
	}
	fmt.Fprintln(out, headerStyle.Render("waypoint")+" "+mutedStyle.Render(a.nav.Current().Href()))

	for i, step := range s.Steps {
		name, _ := step.action()
		if err := r.step(ctx, name, step); err != nil {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ step %d (%s): %v", i+1, name, err)))
			return fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
	}
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d steps, %d history entries", len(s.Steps), a.nav.History().Len())))
	return nil
}

func (r *scriptRunner) step(ctx context.Context, name string, s Step) error {
	switch name {
	case "open":
		return r.navigate(ctx, "open "+s.Open, func() (*navigation.Page, error) { return r.app.open(ctx, s.Open) })
	case "replace":
		return r.navigate(ctx, "replace "+s.Replace, func() (*navigation.Page, error) { return r.app.replace(ctx, s.Replace) })
	case "fragment":
		r.drain()
		if err := r.app.fragment(ctx, s.Fragment); err != nil {
			return err
		}
		return r.awaitEnter(ctx, "#"+s.Fragment)
	case "back":
		return r.traverse(ctx, -s.Back)
	case "forward":
		return r.traverse(ctx, s.Forward)
	case "reload":
		if err := r.app.nav.Reload(); err != nil {
			return err
		}
		r.printf(stepStyle, "reload %s", r.app.nav.Current().Href())
		return nil
	case "wait":
		select {
		case <-time.After(s.Wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case "expect":
		if got := r.app.nav.Current().Href(); got != s.Expect {
			return fmt.Errorf("expected %s, at %s", s.Expect, got)
		}
		r.printf(enterStyle, "✓ at %s", s.Expect)
		return nil
	case "outline":
		return r.outline(ctx)
	case "links":
		return r.links(ctx, s.Links)
	case "source":
		return r.source(ctx)
	default:
		return fmt.Errorf("unknown action %q", name)
	}
}

func (r *scriptRunner) navigate(ctx context.Context, label string, fn func() (*navigation.Page, error)) error {
	page, err := fn()
	if err != nil {
		return err
	}
	if page == nil {
		r.printf(stayStyle, "· %s stayed at %s", label, r.app.nav.Current().Href())
		return nil
	}
	r.printf(enterStyle, "→ %s as entry %d %s", label, page.ID(), page.Href())
	return nil
}

// drain discards events queued by earlier steps.
func (r *scriptRunner) drain() {
	for {
		select {
		case <-r.events:
		default:
			return
		}
	}
}

func (r *scriptRunner) traverse(ctx context.Context, delta int) error {
	r.drain()
	if err := r.app.nav.Go(delta); err != nil {
		return err
	}
	return r.awaitEnter(ctx, fmt.Sprintf("go %+d", delta))
}

// awaitEnter waits for the enter event a native traversal produces. The
// memory backend emits it before Go returns; a browser reports it later.
func (r *scriptRunner) awaitEnter(ctx context.Context, label string) error {
	timeout := time.NewTimer(traversalTimeout)
	defer timeout.Stop()
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			enter, isEnter := ev.(navigation.EnterEvent)
			if !isEnter {
				continue
			}
			suffix := ""
			if enter.Discontinuity {
				suffix = " (fresh entry)"
			}
			r.printf(enterStyle, "← %s to entry %d %s%s", label, enter.Page.ID(), enter.Page.Href(), suffix)
			return nil
		case <-timeout.C:
			return fmt.Errorf("no navigation within %s", traversalTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *scriptRunner) outline(ctx context.Context) error {
	resp, err := r.app.response(ctx)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("load of %s failed: %v", resp.URL, resp.Err)
	}
	o, err := resp.Outline(r.app.outlineLength)
	if err != nil {
		return err
	}
	r.printf(headerStyle, "%s", o.Title)
	if o.Description != "" {
		r.printf(mutedStyle, "%s", o.Description)
	}
	for _, h := range o.Headings {
		r.printf(stepStyle, "  %s", h)
	}
	return nil
}

func (r *scriptRunner) links(ctx context.Context, limit int) error {
	resp, err := r.app.response(ctx)
	if err != nil {
		return err
	}
	links, err := resp.Links(limit)
	if err != nil {
		return err
	}
	for _, l := range links {
		r.printf(stepStyle, "  %s %s", l.Title, mutedStyle.Render(l.URL))
	}
	return nil
}

func (r *scriptRunner) source(ctx context.Context) error {
	resp, err := r.app.response(ctx)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("load of %s failed: %v", resp.URL, resp.Err)
	}
	if !r.opts.Color {
		_, err := fmt.Fprintln(r.out, string(resp.Body))
		return err
	}
	style := r.opts.Style
	if style == "" {
		style = "monokai"
	}
	if err := quick.Highlight(r.out, string(resp.Body), "html", "terminal256", style); err != nil {
		return fmt.Errorf("failed to highlight source: %w", err)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *scriptRunner) printf(style interface{ Render(...string) string }, format string, args ...any) {
	fmt.Fprintln(r.out, style.Render(fmt.Sprintf(format, args...)))
}
