// internal/tui/app.go
//
// Interactive inspector for the autoloader. It uses bubbletea, which follows
// The Elm Architecture: the App model holds all state, Update reacts to
// messages, and View renders the current state to a string.
//
// Two screens: a resolve prompt where you type a symbolic name and see where
// it resolved (or every path that was probed), and a registry browser
// listing the names the loader has satisfied so far.

package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mossline/goload/autoload"
)

// appState represents which screen we're on.
type appState int

const (
	stateResolve  appState = iota // prompt for a name and show the outcome
	stateRegistry                 // browse the loaded registry
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// loadResultMsg carries the outcome of one resolve attempt back into Update.
type loadResultMsg struct {
	name  string
	path  string
	tried []string
	err   error
}

// registryItem implements list.Item for loaded registry entries.
type registryItem struct {
	name string
	path string
}

func (i registryItem) Title() string       { return i.name }
func (i registryItem) Description() string { return i.path }
func (i registryItem) FilterValue() string { return i.name }

// AppOption customizes App construction for tests and alternate hosts.
type AppOption func(*App)

// WithTitle overrides the inspector title line.
func WithTitle(title string) AppOption {
	return func(a *App) {
		if title != "" {
			a.title = title
		}
	}
}

// App is the inspector model. It owns the loader it inspects.
type App struct {
	state  appState
	loader *autoload.Loader
	title  string

	input    textinput.Model
	registry list.Model

	result    *loadResultMsg
	statusMsg string

	width  int
	height int
}

// NewApp builds the inspector around an already-configured loader.
func NewApp(loader *autoload.Loader, opts ...AppOption) *App {
	input := textinput.New()
	input.Placeholder = "App.Models.User"
	input.Prompt = "load> "
	input.Focus()

	registry := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	registry.Title = "Loaded names"
	registry.SetShowStatusBar(false)
	registry.SetFilteringEnabled(false)

	app := &App{
		state:    stateResolve,
		loader:   loader,
		title:    "autoload inspector",
		input:    input,
		registry: registry,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.registry.SetSize(msg.Width-2, msg.Height-4)
		return a, nil

	case loadResultMsg:
		result := msg
		a.result = &result
		a.statusMsg = ""
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "tab":
			a.toggleScreen()
			return a, nil
		case "enter":
			if a.state == stateResolve {
				name := strings.TrimSpace(a.input.Value())
				if name == "" {
					a.statusMsg = "type a name first"
					return a, nil
				}
				return a, a.resolveCmd(name)
			}
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case stateResolve:
		a.input, cmd = a.input.Update(msg)
	case stateRegistry:
		a.registry, cmd = a.registry.Update(msg)
	}
	return a, cmd
}

// resolveCmd runs Load for the typed name and reports the outcome.
func (a *App) resolveCmd(name string) tea.Cmd {
	return func() tea.Msg {
		err := a.loader.Load(name)
		path := a.loader.Loaded()[name]
		return loadResultMsg{
			name:  name,
			path:  path,
			tried: a.loader.Tried(),
			err:   err,
		}
	}
}

func (a *App) toggleScreen() {
	if a.state == stateResolve {
		a.state = stateRegistry
		a.refreshRegistry()
		return
	}
	a.state = stateResolve
	a.input.Focus()
}

// refreshRegistry rebuilds the registry list from the loader's snapshot.
func (a *App) refreshRegistry() {
	loaded := a.loader.Loaded()
	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]list.Item, 0, len(names))
	for _, name := range names {
		items = append(items, registryItem{name: name, path: loaded[name]})
	}
	a.registry.SetItems(items)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.state == stateRegistry {
		return a.registry.View() + helpStyle.Render("tab: resolve · esc: quit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(a.title))
	b.WriteString("\n\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	if a.statusMsg != "" {
		b.WriteString(dimStyle.Render(a.statusMsg))
		b.WriteString("\n")
	}
	if a.result != nil {
		b.WriteString(a.renderResult())
	}
	b.WriteString(helpStyle.Render("enter: load · tab: registry · esc: quit"))
	return b.String()
}

func (a *App) renderResult() string {
	var b strings.Builder
	r := a.result
	switch {
	case r.err != nil:
		b.WriteString(errStyle.Render(r.err.Error()))
	case r.path != "":
		b.WriteString(okStyle.Render(fmt.Sprintf("%s ← %s", r.name, r.path)))
	case len(r.tried) == 0:
		// Declared before we got to it, so nothing was probed.
		b.WriteString(okStyle.Render(fmt.Sprintf("%s already declared", r.name)))
	default:
		b.WriteString(dimStyle.Render(fmt.Sprintf("nothing loaded for %s (swallowed by %s mode)", r.name, a.loader.Mode())))
	}
	b.WriteString("\n")
	if len(r.tried) > 0 {
		b.WriteString(dimStyle.Render("probed:\n  " + strings.Join(r.tried, "\n  ")))
		b.WriteString("\n")
	}
	return b.String()
}
