// Package tui provides the interactive terminal browser for the artwork
// collection.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/view"
)

// Session is the selection session the browser drives.
// *view.Controller implements it.
type Session interface {
	Load(ctx context.Context) (view.ViewState, error)
	GoToPage(ctx context.Context, n int) (view.ViewState, error)
	ToggleRow(id int, checked bool) (view.ViewState, error)
	ToggleAll(checked bool) (view.ViewState, error)
	Clear() view.ViewState
	SubmitBulk(ctx context.Context, n int) (view.ViewState, bulk.Result, error)
	Snapshot() view.ViewState
}

// Column widths of the artwork table.
const (
	colCheck        = 3
	colTitle        = 32
	colOrigin       = 14
	colArtist       = 28
	colInscriptions = 24
	colDate         = 10
)

// Model is the Bubble Tea model of the browser.
type Model struct {
	ctx     context.Context
	session Session
	keys    *KeyMap
	styles  *Styles
	help    help.Model
	input   textinput.Model

	state   view.ViewState
	cursor  int
	overlay bool
	status  string
	err     error

	width  int
	height int
}

// New creates a browser model over session.
func New(ctx context.Context, session Session) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter number"
	ti.CharLimit = 7
	ti.Width = 16

	return &Model{
		ctx:     ctx,
		session: session,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		help:    help.New(),
		input:   ti,
		state:   session.Snapshot(),
	}
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	m.state.Loading = true
	m.state.RequestedPage = 1
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		st, err := session.Load(ctx)
		return pageLoadedMsg{page: 1, state: st, err: err}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case pageLoadedMsg:
		if errors.Is(msg.err, view.ErrStaleResponse) {
			return m, nil
		}
		m.state = msg.state
		m.err = msg.err
		if msg.err == nil {
			m.status = ""
			m.clampCursor()
		}
		return m, nil

	case bulkDoneMsg:
		m.state = msg.state
		m.err = msg.err
		if msg.err == nil {
			m.status = bulkStatus(msg.result)
		}
		return m, nil

	case selectionMsg:
		m.state = msg.state
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.overlay {
			return m.updateOverlay(msg)
		}
		return m.updateTable(msg)
	}

	return m, nil
}

func (m *Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Records)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(m.state.Records) {
			id := m.state.Records[m.cursor].ID
			st, err := m.session.ToggleRow(id, !m.state.Selection.IsSelected(id))
			return m.Update(selectionMsg{state: st, err: err})
		}

	case key.Matches(msg, m.keys.ToggleAll):
		st, err := m.session.ToggleAll(m.state.Selection.Header != view.HeaderChecked)
		return m.Update(selectionMsg{state: st, err: err})

	case key.Matches(msg, m.keys.Clear):
		m.status = "Selection cleared"
		return m.Update(selectionMsg{state: m.session.Clear()})

	case key.Matches(msg, m.keys.Next):
		if next := m.displayedPage() + 1; next <= m.state.TotalPages {
			return m, m.goTo(next)
		}

	case key.Matches(msg, m.keys.Prev):
		if m.displayedPage() > 1 {
			return m, m.goTo(m.displayedPage() - 1)
		}

	case key.Matches(msg, m.keys.Bulk):
		m.overlay = true
		m.input.SetValue("")
		m.err = nil
		return m, m.input.Focus()
	}

	return m, nil
}

func (m *Model) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.overlay = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if _, enabled := view.BulkButtonLabel(m.input.Value(), m.state.BulkLoading); !enabled {
			return m, nil
		}
		n, err := view.ParseBulkCount(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.overlay = false
		m.input.Blur()
		m.state.BulkLoading = true
		m.status = ""
		m.err = nil
		session, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			st, res, err := session.SubmitBulk(ctx, n)
			return bulkDoneMsg{state: st, result: res, err: err}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// goTo issues a navigation. Responses superseded by a later navigation are
// dropped when they arrive.
func (m *Model) goTo(page int) tea.Cmd {
	m.state.Loading = true
	m.state.RequestedPage = page
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		st, err := session.GoToPage(ctx, page)
		return pageLoadedMsg{page: page, state: st, err: err}
	}
}

// displayedPage is the page navigation is relative to: the page being
// loaded when a load is in flight, otherwise the page on screen.
func (m *Model) displayedPage() int {
	if m.state.Loading && m.state.RequestedPage > 0 {
		return m.state.RequestedPage
	}
	return m.state.Page
}

func (m *Model) clampCursor() {
	switch {
	case len(m.state.Records) == 0:
		m.cursor = 0
	case m.cursor >= len(m.state.Records):
		m.cursor = len(m.state.Records) - 1
	}
}

func bulkStatus(res bulk.Result) string {
	switch {
	case res.Selected == 0:
		return "Selection cleared"
	case res.Saturated:
		return fmt.Sprintf("Selected %d items (collection exhausted)", res.Selected)
	default:
		return fmt.Sprintf("Selected %d items (+%d)", res.Selected, len(res.Added))
	}
}

// View renders the browser.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Art Institute of Chicago: Artworks"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString(m.renderFooter())

	if m.overlay {
		b.WriteString("\n")
		b.WriteString(m.renderOverlay())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Success.Render(m.status))
	}

	b.WriteString("\n\n")
	if m.overlay {
		b.WriteString(m.help.ShortHelpView(m.keys.OverlayHelp()))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderTable() string {
	var b strings.Builder

	header := headerBox(m.state.Selection.Header)
	b.WriteString(m.styles.Header.Render(row(
		header, "Title", "Origin", "Artist", "Inscriptions", "Start Date", "End Date",
	)))
	b.WriteString("\n")

	if m.state.Loading && len(m.state.Records) == 0 {
		b.WriteString(m.styles.Muted.Render("  Loading..."))
		b.WriteString("\n")
		return b.String()
	}
	if len(m.state.Records) == 0 {
		b.WriteString(m.styles.Muted.Render("  No artworks"))
		b.WriteString("\n")
		return b.String()
	}

	for i, r := range m.state.Records {
		line := recordRow(r, m.state.Selection.IsSelected(r.ID))
		switch {
		case i == m.cursor:
			b.WriteString(m.styles.Cursor.Render("> " + line))
		case m.state.Selection.IsSelected(r.ID):
			b.WriteString(m.styles.Checked.Render("  " + line))
		default:
			b.WriteString(m.styles.Row.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	page := m.state.Page
	if m.state.Loading {
		page = m.state.RequestedPage
	}
	foot := fmt.Sprintf("Page %d of %d", page, m.state.TotalPages)
	if m.state.Loading {
		foot += " (loading)"
	}
	foot += fmt.Sprintf("  |  %d records  |  %d selected", m.state.TotalRecords, m.state.SelectionSize)
	if m.state.BulkLoading {
		foot += "  |  " + m.styles.Warning.Render("Selecting...")
	}
	return m.styles.Footer.Render(foot)
}

func (m *Model) renderOverlay() string {
	label, enabled := view.BulkButtonLabel(m.input.Value(), m.state.BulkLoading)
	button := m.styles.ButtonOff.Render(label)
	if enabled {
		button = m.styles.Button.Render(label)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render(label),
		m.input.View(),
		button,
	)
	return m.styles.Overlay.Render(body)
}

func headerBox(h view.HeaderState) string {
	switch h {
	case view.HeaderChecked:
		return "[x]"
	case view.HeaderPartial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func recordRow(r artwork.Record, selected bool) string {
	box := "[ ]"
	if selected {
		box = "[x]"
	}
	return row(box, r.Title, r.PlaceOfOrigin, r.ArtistDisplay, r.InscriptionsText(),
		dateCell(r.DateStart), dateCell(r.DateEnd))
}

func row(box, title, origin, artist, inscriptions, start, end string) string {
	return strings.Join([]string{
		pad(box, colCheck),
		pad(title, colTitle),
		pad(origin, colOrigin),
		pad(artist, colArtist),
		pad(inscriptions, colInscriptions),
		pad(start, colDate),
		pad(end, colDate),
	}, " ")
}

func dateCell(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

// pad truncates or right-pads s to exactly width runes. Newlines in
// API strings are flattened.
func pad(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, session Session) error {
	p := tea.NewProgram(New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
