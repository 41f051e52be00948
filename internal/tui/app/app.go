// Package app is the root Bubble Tea model of the gaze-monitor TUI.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/client"
	"github.com/gaze-pointer/monitor/internal/tui/theme"
	"github.com/gaze-pointer/monitor/internal/tui/views/detail"
	"github.com/gaze-pointer/monitor/internal/tui/views/events"
	helpview "github.com/gaze-pointer/monitor/internal/tui/views/help"
	"github.com/gaze-pointer/monitor/internal/tui/views/hosts"
	"github.com/gaze-pointer/monitor/internal/tui/views/screen"
	"github.com/gaze-pointer/monitor/internal/tui/views/status"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayEvents
	OverlayHelp
)

// Server is the part of the HTTP client the model uses.
type Server interface {
	GetHosts() ([]client.HostState, error)
	Link(name string) (*client.LinkResponse, error)
	Unlink() (*client.LinkResponse, error)
}

// Stream is the part of the WebSocket client the model uses.
type Stream interface {
	Listen(ctx context.Context) tea.Cmd
	ReadLoop(ctx context.Context) tea.Cmd
}

// hostsMsg carries the result of a host list refresh.
type hostsMsg struct {
	hosts []client.HostState
	err   error
}

// linkMsg carries the result of a link or unlink request. An empty host
// means unlink.
type linkMsg struct {
	host string
	resp *client.LinkResponse
	err  error
}

// Model is the root Bubble Tea model.
type Model struct {
	ws     Stream
	http   Server
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	hosts   map[string]*client.HostState // by uuid
	overlay Overlay
	alert   string
	linkErr map[string]string // last link error by host name

	statusBar status.Model
	hostList  hosts.Model
	screen    screen.Model
	events    events.Model
	helpView  helpview.Model
	footer    help.Model

	connected bool
}

// New creates the root model.
func New(ws Stream, http Server) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        ws,
		http:      http,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		hosts:     make(map[string]*client.HostState),
		linkErr:   make(map[string]string),
		statusBar: status.New(),
		hostList:  hosts.New(),
		screen:    screen.New(),
		events:    events.New(),
		helpView:  helpview.New(),
		footer:    help.New(),
	}
}

// Init starts the WebSocket connection and fetches the host list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ws.Listen(m.ctx), m.refreshHosts())
}

func (m Model) refreshHosts() tea.Cmd {
	srv := m.http
	return func() tea.Msg {
		list, err := srv.GetHosts()
		return hostsMsg{hosts: list, err: err}
	}
}

func (m Model) link(name string) tea.Cmd {
	srv := m.http
	return func() tea.Msg {
		resp, err := srv.Link(name)
		return linkMsg{host: name, resp: resp, err: err}
	}
}

func (m Model) unlink() tea.Cmd {
	srv := m.http
	return func() tea.Msg {
		resp, err := srv.Unlink()
		return linkMsg{resp: resp, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.hostList.Width = msg.Width
		m.screen.Width = msg.Width
		m.footer.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.events.Add(events.KindWS, "connected")
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.events.Add(events.KindWS, "disconnected: "+msg.Err.Error())
		}
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.setHosts(msg.Payload.Hosts)
		m.setTracking(msg.Payload.Tracking)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDeltaMsg:
		for _, h := range msg.Payload.Updates {
			h := h
			m.hosts[h.UUID] = &h
		}
		for _, name := range msg.Payload.Removed {
			for id, h := range m.hosts {
				if h.Name == name {
					delete(m.hosts, id)
				}
			}
		}
		m.rebuild()
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSTrackingMsg:
		m.setTracking(msg.Payload.Tracking)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSAlertMsg:
		m.alert = msg.Payload.Message
		m.events.Add(events.KindAlert, msg.Payload.Message)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSErrorMsg:
		m.events.Add(events.KindErr, "server: "+string(msg.Raw))
		return m, m.ws.ReadLoop(m.ctx)

	case hostsMsg:
		if msg.err != nil {
			m.events.Add(events.KindErr, "refresh hosts: "+msg.err.Error())
			return m, nil
		}
		m.setHosts(msg.hosts)
		return m, nil

	case linkMsg:
		return m.handleLinkResult(msg), nil
	}

	return m, nil
}

func (m Model) handleLinkResult(msg linkMsg) Model {
	action := "link " + msg.host
	if msg.host == "" {
		action = "unlink"
	}
	if msg.err != nil {
		if msg.host != "" {
			m.linkErr[msg.host] = msg.err.Error()
		}
		m.events.Add(events.KindErr, action+": "+msg.err.Error())
		return m
	}
	delete(m.linkErr, msg.host)
	result := "ok"
	if msg.resp != nil && msg.resp.Status != "" {
		result = msg.resp.Status
	}
	m.events.Add(events.KindLink, action+" "+result)
	return m
}

func (m *Model) setHosts(list []client.HostState) {
	m.hosts = make(map[string]*client.HostState, len(list))
	for _, h := range list {
		h := h
		m.hosts[h.UUID] = &h
	}
	m.rebuild()
}

func (m *Model) setTracking(tr client.Tracking) {
	prev := m.screen.Tracking()
	m.screen.SetTracking(tr)
	m.statusBar.Outcome = tr.Outcome
	if tr.Tick != prev.Tick {
		for _, c := range tr.Commands {
			m.events.Add(events.KindVoice, c)
		}
	}
}

func (m *Model) rebuild() {
	list := make([]client.HostState, 0, len(m.hosts))
	for _, h := range m.hosts {
		list = append(list, *h)
	}
	m.statusBar.SetHosts(list)
	m.hostList.SetHosts(m.hosts)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayNone:
	case OverlayEvents:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Events):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.events.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.events.ScrollDown(1)
		case key.Matches(msg, m.keys.Filter):
			m.events.ToggleFilter()
		}
		return m, nil
	case OverlayDetail:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Info):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Link):
			return m.linkSelected()
		case key.Matches(msg, m.keys.Unlink):
			return m, m.unlink()
		}
		return m, nil
	default:
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		m.alert = ""
	case key.Matches(msg, m.keys.Down):
		m.hostList.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.hostList.MoveUp()
	case key.Matches(msg, m.keys.Jump):
		m.hostList.JumpTo(int(msg.String()[0] - '1'))
	case key.Matches(msg, m.keys.Link):
		return m.linkSelected()
	case key.Matches(msg, m.keys.Unlink):
		return m, m.unlink()
	case key.Matches(msg, m.keys.Info):
		if m.hostList.Selected() != nil {
			m.overlay = OverlayDetail
		}
	case key.Matches(msg, m.keys.Events):
		m.overlay = OverlayEvents
		m.events.MarkSeen()
	case key.Matches(msg, m.keys.Reset):
		m.screen.Reset()
	case key.Matches(msg, m.keys.Reload):
		return m, m.refreshHosts()
	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
	}
	return m, nil
}

func (m Model) linkSelected() (tea.Model, tea.Cmd) {
	h := m.hostList.Selected()
	if h == nil {
		return m, nil
	}
	if !h.Available {
		m.events.Add(events.KindErr, fmt.Sprintf("link %s: host not available", h.Name))
		return m, nil
	}
	return m, m.link(h.Name)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var overlay string
	switch m.overlay {
	case OverlayDetail:
		if h := m.hostList.Selected(); h != nil {
			d := detail.New(h)
			d.LinkError = m.linkErr[h.Name]
			overlay = d.View()
		}
	case OverlayEvents:
		overlay = m.events.View(m.width, m.height)
	case OverlayHelp:
		overlay = m.helpView.View(m.keys.FullHelp(), m.width)
	}

	sections := []string{m.statusBar.View()}
	if !m.connected {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorWarning).Bold(true).
			Render("  DISCONNECTED  Reconnecting to server..."))
	}
	if m.alert != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).
			Render("  ! "+m.alert))
	}
	if overlay != "" {
		sections = append(sections, overlay)
	} else {
		sections = append(sections, m.hostList.View(), m.screen.View())
	}
	footer := m.footer.View(m.keys)
	if n := m.events.Unseen; n > 0 && m.overlay != OverlayEvents {
		footer += theme.StyleDimmed.Render(fmt.Sprintf("  (%d new %s)", n, plural(n, "alert")))
	}
	sections = append(sections, "  "+footer)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Hosts returns the host names in display order.
func (m Model) Hosts() []string {
	var names []string
	h := m.hostList
	for i := 0; i < h.Len(); i++ {
		h.JumpTo(i)
		names = append(names, h.Selected().Name)
	}
	return names
}
