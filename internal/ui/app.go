package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/narrative"
)

// Actions are the commands the App can trigger. Any of them may be nil,
// which disables the matching key.
type Actions struct {
	Refresh        func() tea.Cmd
	UpdateDatabase func() tea.Cmd
	Select         func(contentID string) tea.Cmd
	ToggleFilters  func() tea.Cmd

	// ToggleDatabase opens or closes the database panel. When nil, u
	// starts UpdateDatabase directly.
	ToggleDatabase func() tea.Cmd
	ToggleAdd      func() tea.Cmd
	AddContent     func(contentID string) tea.Cmd
}

// App is the root Bubble Tea model.
// App does NOT hold the application state. It receives groupings via
// messages and reaches the containers only through Actions.
type App struct {
	actions Actions
	ring    *audit.RingBuffer

	rows        []Row
	cursor      int
	chosen      string
	filters     narrative.Filters
	filtersOpen bool
	dbOpen      bool
	addOpen     bool
	input       textinput.Model
	notice      string
	err         error

	width     int
	height    int
	ready     bool
	busy      string
	showDebug bool
	spinner   spinner.Model
}

var keys = struct {
	Quit     key.Binding
	Down     key.Binding
	Up       key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Enter    key.Binding
	Refresh  key.Binding
	UpdateDB key.Binding
	Filters  key.Binding
	Debug    key.Binding
	Add      key.Binding
	Back     key.Binding
}{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Down:     key.NewBinding(key.WithKeys("j", "down")),
	Up:       key.NewBinding(key.WithKeys("k", "up")),
	Top:      key.NewBinding(key.WithKeys("g", "home")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end")),
	Enter:    key.NewBinding(key.WithKeys("enter")),
	Refresh:  key.NewBinding(key.WithKeys("r")),
	UpdateDB: key.NewBinding(key.WithKeys("u")),
	Filters:  key.NewBinding(key.WithKeys("f")),
	Debug:    key.NewBinding(key.WithKeys("D")),
	Add:      key.NewBinding(key.WithKeys("a")),
	Back:     key.NewBinding(key.WithKeys("esc")),
}

// NewApp creates an App showing initial. When loading is true the spinner
// runs until the first GroupingChanged arrives. ring may be nil, which
// leaves the events overlay empty.
func NewApp(initial narrative.Grouping, actions Actions, ring *audit.RingBuffer, loading bool) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "content ID"
	ti.CharLimit = 200
	ti.Width = 40

	a := App{
		actions: actions,
		ring:    ring,
		rows:    Flatten(initial),
		input:   ti,
		spinner: s,
	}
	if loading {
		a.busy = "Loading"
	}
	return a
}

// Init starts the spinner when the App opens in the loading state.
func (a App) Init() tea.Cmd {
	if a.busy != "" {
		return a.spinner.Tick
	}
	return nil
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		if a.busy == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case GroupingChanged:
		a.rows = Flatten(msg.Grouping)
		if a.cursor >= len(a.rows) {
			a.cursor = max(len(a.rows)-1, 0)
		}
		if a.busy == "Loading" {
			a.busy = ""
		}
		return a, nil

	case RefreshComplete:
		a.busy = ""
		a.err = msg.Err
		return a, nil

	case DatabaseUpdated:
		a.busy = ""
		a.err = msg.Err
		if msg.Err == nil {
			a.notice = msg.Message
			a.dbOpen = false
			a.closeInput()
		}
		return a, nil

	case ContentAdded:
		a.busy = ""
		a.err = msg.Err
		if msg.Err == nil {
			a.notice = msg.Message
			a.closeInput()
		}
		return a, nil

	case DatabaseWindowToggled:
		a.dbOpen = msg.Open
		if !msg.Open {
			a.closeInput()
		}
		return a, nil

	case AddWindowToggled:
		if !msg.Open {
			a.closeInput()
			return a, nil
		}
		a.addOpen = true
		return a, a.input.Focus()

	case ContentSelected:
		a.chosen = msg.ID
		return a, nil

	case FilterWindowToggled:
		a.filtersOpen = msg.Open
		a.filters = msg.Filters
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the error and notice lines.
	a.err = nil
	a.notice = ""

	if a.addOpen {
		return a.handleInputKey(msg)
	}
	if a.dbOpen {
		switch {
		case key.Matches(msg, keys.Back):
			return a, a.toggle(a.actions.ToggleDatabase)
		case key.Matches(msg, keys.Enter):
			return a.startBusy("Updating database", a.actions.UpdateDatabase)
		case key.Matches(msg, keys.Add):
			return a, a.toggle(a.actions.ToggleAdd)
		}
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil

	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.rows)-1 {
			a.cursor++
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, keys.Top):
		a.cursor = 0
		return a, nil

	case key.Matches(msg, keys.Bottom):
		if len(a.rows) > 0 {
			a.cursor = len(a.rows) - 1
		}
		return a, nil

	case key.Matches(msg, keys.Enter):
		if a.cursor < len(a.rows) && a.actions.Select != nil {
			return a, a.actions.Select(a.rows[a.cursor].ContentID)
		}
		return a, nil

	case key.Matches(msg, keys.Refresh):
		return a.startBusy("Refreshing", a.actions.Refresh)

	case key.Matches(msg, keys.UpdateDB):
		if a.actions.ToggleDatabase == nil {
			return a.startBusy("Updating database", a.actions.UpdateDatabase)
		}
		return a, a.actions.ToggleDatabase()

	case key.Matches(msg, keys.Filters):
		return a, a.toggle(a.actions.ToggleFilters)
	}

	return a, nil
}

// handleInputKey feeds keys to the content ID prompt. Enter submits the
// trimmed value, esc goes back to the database panel.
func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit
	case tea.KeyEsc:
		return a, a.toggle(a.actions.ToggleAdd)
	case tea.KeyEnter:
		id := strings.TrimSpace(a.input.Value())
		if id == "" || a.actions.AddContent == nil {
			return a, nil
		}
		return a.startBusy("Adding content", func() tea.Cmd { return a.actions.AddContent(id) })
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) toggle(action func() tea.Cmd) tea.Cmd {
	if action == nil {
		return nil
	}
	return action()
}

func (a *App) closeInput() {
	a.addOpen = false
	a.input.Blur()
	a.input.Reset()
}

// startBusy runs action with the spinner shown. A second command is not
// started while one is in flight.
func (a App) startBusy(label string, action func() tea.Cmd) (tea.Model, tea.Cmd) {
	if action == nil || (a.busy != "" && a.busy != "Loading") {
		return a, nil
	}
	restart := a.busy == ""
	a.busy = label
	if restart {
		return a, tea.Batch(action(), a.spinner.Tick)
	}
	return a, action()
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	contentHeight := a.height - 1
	panel := ""
	if a.filtersOpen {
		panel = RenderFilterPanel(a.filters, a.width) + "\n"
		contentHeight -= strings.Count(panel, "\n")
	}
	if a.dbOpen {
		db := RenderDatabasePanel(a.addOpen, a.input.View(), a.width) + "\n"
		panel += db
		contentHeight -= strings.Count(db, "\n")
	}

	footer := ""
	switch {
	case a.err != nil:
		footer = ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)") + "\n"
		contentHeight--
	case a.notice != "":
		footer = NoticeStyle.Width(a.width).Render(a.notice) + "\n"
		contentHeight--
	}

	stream := RenderStream(a.rows, a.cursor, a.chosen, a.width, contentHeight)

	busy := ""
	if a.busy != "" {
		busy = a.spinner.View() + " " + a.busy + "..."
	}
	statusBar := RenderStatusBar(a.cursor, len(a.rows), a.width, busy)

	return panel + stream + footer + statusBar
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Rows returns the rows currently displayed (for testing).
func (a App) Rows() []Row {
	return a.rows
}
