package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/waypoint/pkg/navigation"
	"github.com/entrhq/waypoint/pkg/pageload"
)

type navEventMsg struct {
	event navigation.Event
}

type navDoneMsg struct {
	label string
	page  *navigation.Page
	err   error
}

type loadedMsg struct {
	pageID int64
	resp   *pageload.Response
	err    error
}

// browseModel is an address bar over the outline of the current page.
type browseModel struct {
	ctx    context.Context
	app    *app
	events <-chan navigation.Event

	address  textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	loading bool
	status  string
	width   int
	height  int
	ready   bool
}

func newBrowseModel(ctx context.Context, a *app) browseModel {
	address := textinput.New()
	address.Prompt = "› "
	address.Placeholder = "url, path or #fragment"
	address.SetValue(a.nav.Current().Href())
	address.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return browseModel{
		ctx:     ctx,
		app:     a,
		events:  a.nav.Watch(ctx, max(a.eventBuffer, 8)),
		address: address,
		spinner: s,
		loading: true,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitEvent(), m.loadCmd(m.app.nav.Current()))
}

func (m browseModel) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return navEventMsg{event: ev}
	}
}

func (m browseModel) loadCmd(page *navigation.Page) tea.Cmd {
	return func() tea.Msg {
		resp, err := pageload.Wait(m.ctx, page, m.app.load)
		return loadedMsg{pageID: page.ID(), resp: resp, err: err}
	}
}

func (m browseModel) navigate(label string, fn func() (*navigation.Page, error)) tea.Cmd {
	return func() tea.Msg {
		page, err := fn()
		return navDoneMsg{label: label, page: page, err: err}
	}
}

func (m browseModel) traverse(delta int) tea.Cmd {
	return func() tea.Msg {
		return navDoneMsg{label: fmt.Sprintf("go %+d", delta), err: m.app.nav.Go(delta)}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		bodyHeight := max(msg.Height-5, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}
		m.address.Width = max(msg.Width-8, 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			target := strings.TrimSpace(m.address.Value())
			if target != "" {
				m.status = "opening " + target
				cmds = append(cmds, m.navigate("open "+target, func() (*navigation.Page, error) {
					return m.app.open(m.ctx, target)
				}))
			}
		case "ctrl+b", "alt+left":
			cmds = append(cmds, m.traverse(-1))
		case "ctrl+f", "alt+right":
			cmds = append(cmds, m.traverse(1))
		case "ctrl+r":
			cmds = append(cmds, func() tea.Msg {
				return navDoneMsg{label: "reload", err: m.app.nav.Reload()}
			})
		case "ctrl+y":
			href := m.app.nav.Current().Href()
			if err := clipboard.WriteAll(href); err != nil {
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "copied " + href
			}
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		default:
			var cmd tea.Cmd
			m.address, cmd = m.address.Update(msg)
			cmds = append(cmds, cmd)
		}

	case navEventMsg:
		cmds = append(cmds, m.waitEvent())
		switch ev := msg.event.(type) {
		case navigation.EnterEvent:
			m.address.SetValue(ev.Page.Href())
			m.status = fmt.Sprintf("%s entry %d", ev.When, ev.Page.ID())
			if ev.When != navigation.WhenEnter {
				m.loading = true
				cmds = append(cmds, m.loadCmd(ev.Page), m.spinner.Tick)
			}
		case navigation.StayEvent:
			switch {
			case ev.Reason != nil:
				m.status = "failed: " + ev.Reason.Error()
			case ev.Superseded:
				m.status = "superseded " + ev.Target.Href()
			default:
				m.status = "stayed, blocked " + ev.Target.Href()
			}
		}

	case navDoneMsg:
		if msg.err != nil {
			m.status = msg.label + ": " + msg.err.Error()
		}

	case loadedMsg:
		if cur := m.app.nav.Current(); cur == nil || cur.ID() != msg.pageID {
			break
		}
		m.loading = false
		m.viewport.SetContent(m.render(msg))
		m.viewport.GotoTop()

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m browseModel) render(msg loadedMsg) string {
	if msg.err != nil {
		return errorStyle.Render(msg.err.Error())
	}
	if !msg.resp.OK {
		return errorStyle.Render(fmt.Sprintf("load of %s failed: %v", msg.resp.URL, msg.resp.Err))
	}
	o, err := msg.resp.Outline(m.app.outlineLength)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(o.Title))
	b.WriteString("\n")
	if o.Description != "" {
		b.WriteString(mutedStyle.Render(o.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, h := range o.Headings {
		b.WriteString(stepStyle.Render(h))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(o.Markup))
	if o.Truncated {
		b.WriteString(mutedStyle.Render("\n[outline truncated]"))
	}
	return lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(b.String())
}

func (m browseModel) View() string {
	if !m.ready {
		return "loading..."
	}
	status := m.status
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	help := mutedStyle.Render("enter open · ctrl+b back · ctrl+f forward · ctrl+r reload · ctrl+y copy url · esc quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		addressStyle.Width(max(m.width-2, 10)).Render(m.address.View()),
		m.viewport.View(),
		statusBarStyle.Render(status),
		help,
	)
}

func runBrowse(ctx context.Context, a *app) error {
	p := tea.NewProgram(newBrowseModel(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
