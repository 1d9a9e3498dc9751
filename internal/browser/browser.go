// Package browser is the interactive shell over the record cache: a
// catalog list pane plus a record detail pane, keyboard-driven. Every
// navigation takes a selection token before loading, so a slow load for a
// record the user already moved past can never overwrite the pane.
package browser

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/genoscope/internal/catalog"
	"github.com/wilbur182/genoscope/internal/config"
	"github.com/wilbur182/genoscope/internal/event"
	"github.com/wilbur182/genoscope/internal/prefetch"
	"github.com/wilbur182/genoscope/internal/recordcache"
	"github.com/wilbur182/genoscope/internal/selection"
)

// VectorSource derives feature vectors from raw sequences. The store
// implements it; the browser uses it to fill the vector side-cache the
// first time a record is shown.
type VectorSource interface {
	BiasVector(ctx context.Context, key catalog.Key) ([]float64, error)
	CodonVector(ctx context.Context, key catalog.Key) ([]float64, error)
}

// Deps carries the injected collaborators.
type Deps struct {
	Cache      *recordcache.Cache
	Guard      *selection.Guard
	Prefetcher *prefetch.Prefetcher
	Vectors    VectorSource
	Dispatcher *event.Dispatcher
	Logger     *slog.Logger
	UI         config.UIConfig
}

type keyMap struct {
	Up, Down, Top, Bottom, Reload, Quit key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
	Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
	Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Messages.
type (
	keysLoadedMsg struct {
		keys []catalog.Key
		err  error
	}
	recordLoadedMsg struct {
		token  uint64
		record *catalog.Record
		err    error
	}
	vectorsReadyMsg struct {
		key  catalog.Key
		bias []float64
	}
	sourceChangedMsg struct{}
	eventsClosedMsg  struct{}
)

// Model is the bubbletea model for the browser.
type Model struct {
	deps   Deps
	events <-chan event.Event

	catalogKeys []catalog.Key
	index       int
	record      *catalog.Record
	bias        []float64
	loading     bool
	loadErr     error

	spin          spinner.Model
	width, height int
}

// New builds the browser model. Call Run (or hand the model to a
// tea.Program) to start it.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	var events <-chan event.Event
	if deps.Dispatcher != nil {
		events, _ = deps.Dispatcher.Subscribe(event.SourceChanged)
	}
	return Model{deps: deps, events: events, spin: sp}
}

// Init loads the catalog listing and starts listening for source changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadKeys(), m.spin.Tick}
	if m.events != nil {
		cmds = append(cmds, m.waitForEvent())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadKeys() tea.Cmd {
	cache := m.deps.Cache
	return func() tea.Msg {
		ks, err := cache.Keys(context.Background())
		return keysLoadedMsg{keys: ks, err: err}
	}
}

// loadCurrent issues a fresh selection token and loads the record under
// the cursor. The token rides along in the result message; Update drops
// the message if the token has been superseded by then.
func (m *Model) loadCurrent() tea.Cmd {
	if m.index < 0 || m.index >= len(m.catalogKeys) {
		return nil
	}
	token := m.deps.Guard.StartRequest()
	cache := m.deps.Cache
	k := m.catalogKeys[m.index]
	m.loading = true
	m.loadErr = nil

	// Warm the neighbors without delaying this load.
	if m.deps.Prefetcher != nil {
		m.deps.Prefetcher.Around(context.Background(), m.index)
	}

	return func() tea.Msg {
		rec, err := cache.GetRecord(context.Background(), k)
		return recordLoadedMsg{token: token, record: rec, err: err}
	}
}

// loadVectors fills the vector side-cache for key if it is empty, then
// reports the bias vector for display.
func (m Model) loadVectors(k catalog.Key) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		if deps.Vectors == nil {
			return nil
		}
		bias := deps.Cache.GetVector(recordcache.VectorBias, k)
		if bias == nil {
			derived, err := deps.Vectors.BiasVector(context.Background(), k)
			if err != nil {
				deps.Logger.Debug("bias vector derivation failed", "key", k, "error", err)
				return nil
			}
			deps.Cache.SetVector(recordcache.VectorBias, k, derived)
			bias = derived
		}
		if deps.Cache.GetVector(recordcache.VectorCodon, k) == nil {
			if derived, err := deps.Vectors.CodonVector(context.Background(), k); err == nil {
				deps.Cache.SetVector(recordcache.VectorCodon, k, derived)
			}
		}
		return vectorsReadyMsg{key: k, bias: bias}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return eventsClosedMsg{}
		}
		return sourceChangedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case keysLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.catalogKeys = msg.keys
		if m.index >= len(m.catalogKeys) {
			m.index = max(0, len(m.catalogKeys)-1)
		}
		cmd := m.loadCurrent()
		return m, cmd

	case recordLoadedMsg:
		if !m.deps.Guard.IsCurrent(msg.token) {
			// A newer selection superseded this load; its result (and
			// its failure) is irrelevant.
			m.deps.Logger.Debug("dropping stale selection result", "token", msg.token)
			return m, nil
		}
		m.loading = false
		m.bias = nil
		if msg.err != nil {
			m.loadErr = msg.err
			m.record = nil
			return m, nil
		}
		m.record = msg.record
		if msg.record != nil {
			return m, m.loadVectors(msg.record.Attributes.Key)
		}
		return m, nil

	case vectorsReadyMsg:
		if m.record != nil && m.record.Attributes.Key == msg.key {
			m.bias = msg.bias
		}
		return m, nil

	case sourceChangedMsg:
		// External writer touched the catalog: drop everything cached and
		// reload the current position.
		m.deps.Cache.Clear()
		if m.deps.Dispatcher != nil {
			m.deps.Dispatcher.Publish(event.Event{Type: event.CacheCleared})
		}
		cmds := []tea.Cmd{m.loadKeys()}
		if m.events != nil {
			cmds = append(cmds, m.waitForEvent())
		}
		return m, tea.Batch(cmds...)

	case eventsClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		return m.moveTo(m.index - 1)
	case key.Matches(msg, keys.Down):
		return m.moveTo(m.index + 1)
	case key.Matches(msg, keys.Top):
		return m.moveTo(0)
	case key.Matches(msg, keys.Bottom):
		return m.moveTo(len(m.catalogKeys) - 1)
	case key.Matches(msg, keys.Reload):
		if m.index < len(m.catalogKeys) {
			m.deps.Cache.Invalidate(m.catalogKeys[m.index])
		}
		cmd := m.loadCurrent()
		return m, tea.Batch(m.loadKeys(), cmd)
	}
	return m, nil
}

func (m Model) moveTo(index int) (tea.Model, tea.Cmd) {
	if len(m.catalogKeys) == 0 {
		return m, nil
	}
	if index < 0 {
		index = 0
	} else if index >= len(m.catalogKeys) {
		index = len(m.catalogKeys) - 1
	}
	if index == m.index && m.record != nil {
		return m, nil
	}
	m.index = index
	cmd := m.loadCurrent()
	return m, cmd
}
