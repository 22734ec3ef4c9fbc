// Package tui is an interactive window picker for the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/dtop/internal/platform"
)

// ErrCancelled is returned when the user leaves without choosing.
var ErrCancelled = errors.New("no window selected")

// Source lists candidate windows.
type Source interface {
	List(ctx context.Context) ([]platform.Window, error)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	minimizedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

type windowItem struct {
	win platform.Window
}

func (i windowItem) Title() string {
	t := i.win.DisplayTitle()
	if t == "" {
		t = "(untitled)"
	}
	if i.win.Minimized {
		return t + " " + minimizedStyle.Render("minimized")
	}
	return t
}

func (i windowItem) Description() string {
	b := i.win.Bounds
	return fmt.Sprintf("%s  %dx%d+%d+%d", i.win.ID, b.Width, b.Height, b.X, b.Y)
}

func (i windowItem) FilterValue() string {
	return i.win.Owner + " " + i.win.Title + " " + string(i.win.ID)
}

// windowsMsg carries a fresh listing.
type windowsMsg struct {
	windows []platform.Window
	err     error
}

type model struct {
	ctx    context.Context
	source Source
	list   list.Model

	err    error
	chosen *platform.Window
	width  int
	height int
}

func newModel(ctx context.Context, source Source) model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Windows"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return model{ctx: ctx, source: source, list: l}
}

func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		windows, err := m.source.List(m.ctx)
		return windowsMsg{windows: windows, err: err}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.refresh()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - 2
		if h < 1 {
			h = 1
		}
		m.list.SetSize(msg.Width, h)
		return m, nil

	case windowsMsg:
		m.err = msg.err
		if msg.err == nil {
			items := make([]list.Item, 0, len(msg.windows))
			for _, w := range msg.windows {
				items = append(items, windowItem{win: w})
			}
			return m, m.list.SetItems(items)
		}
		return m, nil

	case tea.KeyMsg:
		// While the filter prompt is open every key belongs to it.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		case "enter":
			if item, ok := m.list.SelectedItem().(windowItem); ok {
				w := item.win
				m.chosen = &w
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	} else {
		b.WriteString(helpStyle.Render("enter: select  /: filter  r: refresh  q: quit"))
	}
	return b.String()
}

// Pick shows the picker on the controlling terminal and returns the chosen
// window, or ErrCancelled.
func Pick(ctx context.Context, source Source) (platform.Window, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stderr.Fd())) {
		return platform.Window{}, fmt.Errorf("picker requires an interactive terminal (stdin/stderr must be TTYs)")
	}

	// Render on stderr so stdout stays clean for the selected id.
	p := tea.NewProgram(newModel(ctx, source), tea.WithAltScreen(), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return platform.Window{}, err
	}
	m, ok := final.(model)
	if !ok || m.chosen == nil {
		return platform.Window{}, ErrCancelled
	}
	return *m.chosen, nil
}
