// Package tui is the terminal front end: a gallery grid and a detail viewer
// driven by the same controllers as the HTTP host, with the bubbletea update
// loop as their event thread.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/eventloop"
	"github.com/starford/camroll/internal/gallery"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/navstate"
	"github.com/starford/camroll/internal/pager"
	"github.com/starford/camroll/internal/selection"
)

// Index is the media index both screens use.
type Index interface {
	gallery.Index
	pager.Index
}

// queueMsg wakes Update to drain controller completions.
type queueMsg struct{}

// Model is the bubbletea model. Controllers are only touched from Update.
type Model struct {
	idx    Index
	nav    *navstate.State
	queue  *eventloop.Queue
	logger *slog.Logger

	gallery *gallery.Controller
	viewer  *pager.Controller
	page    pager.Page

	cursor int
	width  int
	notice string
	failed bool
}

// New builds the model and starts the first refresh.
func New(idx Index, logger *slog.Logger) *Model {
	m := &Model{
		idx:    idx,
		nav:    navstate.New(),
		queue:  eventloop.NewQueue(),
		logger: logger,
		width:  80,
	}
	m.gallery = gallery.New(idx, m.nav, m.queue, galleryListener{m}, logger)
	m.gallery.Refresh()
	return m
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, idx Index, logger *slog.Logger) error {
	m := New(idx, logger)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close detaches both controllers.
func (m *Model) Close() {
	if m.viewer != nil {
		m.viewer.Close()
		m.viewer = nil
	}
	m.gallery.Close()
}

func waitForQueue(q *eventloop.Queue) tea.Cmd {
	return func() tea.Msg {
		<-q.Ready()
		return queueMsg{}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForQueue(m.queue)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueMsg:
		m.queue.Drain()
		return m, waitForQueue(m.queue)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.viewer != nil {
			return m, m.updateViewer(msg)
		}
		return m, m.updateGallery(msg)
	}
	return m, nil
}

func (m *Model) columns() int {
	return max(1, m.width/cellWidth)
}

func (m *Model) moveCursor(delta int) {
	n := len(m.gallery.List())
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
}

func (m *Model) updateGallery(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		m.Close()
		return tea.Quit
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l":
		m.moveCursor(1)
	case "up", "k":
		m.moveCursor(-m.columns())
	case "down", "j":
		m.moveCursor(m.columns())
	case "enter", " ":
		if err := m.gallery.OnTap(m.cursor); err != nil {
			m.setError(err)
		}
	case "m":
		m.gallery.ToggleMode()
	case "esc":
		m.gallery.SetMode(selection.Single)
	case "d":
		if err := m.gallery.DeleteSelected(); err != nil {
			m.setError(err)
		}
	case "r":
		m.gallery.Refresh()
	}
	return nil
}

func (m *Model) updateViewer(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		m.closeViewer()
	case "left", "h":
		m.swipe(m.viewer.Current() - 1)
	case "right", "l":
		m.swipe(m.viewer.Current() + 1)
	case "d", "x":
		if err := m.viewer.DeleteCurrent(); err != nil {
			m.setError(err)
		}
	}
	return nil
}

func (m *Model) swipe(position int) {
	if position < 0 || position >= len(m.viewer.List()) {
		return
	}
	if err := m.viewer.SetCurrent(position); err != nil {
		m.setError(err)
	}
}

func (m *Model) openViewer(position int) {
	if m.viewer != nil {
		m.closeViewer()
	}
	v := pager.New(m.idx, m.nav, m.queue, pagerListener{m}, m.logger)
	m.viewer = v
	v.Initialize(m.nav.Get(), position)
	if m.viewer == v {
		v.Attach()
	}
}

func (m *Model) closeViewer() {
	m.viewer.Close()
	m.viewer = nil
	m.page = nil
	m.moveCursor(0)
}

// resolvePage looks the page up off the update loop. A result that is no
// longer on screen when it arrives is dropped.
func (m *Model) resolvePage(position int) {
	v := m.viewer
	m.page = nil
	err := v.LoadPage(position, func(p pager.Page, err error) {
		if err != nil {
			m.logger.Warn("tui: page lookup failed", slog.Int("position", position), slog.String("error", err.Error()))
			return
		}
		loc, ok := v.CurrentLocator()
		if m.viewer != v || !ok || pager.ItemOf(p).Locator != loc {
			return
		}
		m.page = p
	})
	if err != nil {
		m.logger.Warn("tui: page lookup failed", slog.Int("position", position), slog.String("error", err.Error()))
	}
}

func (m *Model) setNotice(s string) {
	m.notice, m.failed = s, false
}

func (m *Model) setError(err error) {
	switch {
	case errors.Is(err, apperr.ErrBusy):
		m.notice = "busy"
	case errors.Is(err, apperr.ErrPermissionDenied):
		m.notice = "no permission to delete"
	default:
		m.notice = err.Error()
	}
	m.failed = true
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	if m.viewer != nil {
		b.WriteString(m.viewerView())
	} else {
		b.WriteString(m.gridView())
	}
	b.WriteString("\n\n")
	if m.notice != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.notice))
		} else {
			b.WriteString(noticeStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) header() string {
	title := titleStyle.Render("camroll")
	mode := m.gallery.Mode().String()
	if m.gallery.Mode() == selection.Multi {
		mode += fmt.Sprintf(" (%d selected)", m.gallery.SelectedCount())
	}
	if m.gallery.Busy() {
		mode += " …"
	}
	return title + "  " + modeStyle.Render(mode)
}

func cellLabel(loc models.Locator) string {
	kind, id, err := loc.Split()
	if err != nil {
		return "?"
	}
	if kind == models.KindVideo {
		return fmt.Sprintf("▶ vid %d", id)
	}
	return fmt.Sprintf("▣ img %d", id)
}

func (m *Model) gridView() string {
	list := m.gallery.List()
	if len(list) == 0 {
		return helpStyle.Render("no photos or videos")
	}
	cols := m.columns()
	var rows []string
	for start := 0; start < len(list); start += cols {
		var cells []string
		for i := start; i < min(start+cols, len(list)); i++ {
			style := cellStyle
			if m.gallery.Highlighted(i) {
				style = selectedCellStyle
			}
			if i == m.cursor {
				style = style.BorderForeground(colorLavender)
			}
			cells = append(cells, style.Render(cellLabel(list[i])))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) viewerView() string {
	loc, ok := m.viewer.CurrentLocator()
	if !ok {
		return ""
	}
	kind := "image"
	if _, isVideo := m.page.(pager.VideoPage); isVideo {
		kind = "video ▶"
	}
	var mime string
	if m.page != nil {
		mime = pager.ItemOf(m.page).MimeType
	}
	body := fmt.Sprintf("%s\n%s\n%s\n\n%d / %d",
		titleStyle.Render(kind), loc, helpStyle.Render(mime),
		m.viewer.Current()+1, len(m.viewer.List()))
	if m.viewer.Deleting() {
		body += "\n" + noticeStyle.Render("deleting…")
	}
	return viewerStyle.Render(body)
}

func (m *Model) help() string {
	if m.viewer != nil {
		return "←/→ swipe • d delete • esc back • ctrl+c quit"
	}
	if m.gallery.Mode() == selection.Multi {
		return "arrows move • enter select • d delete selected • esc done • q quit"
	}
	return "arrows move • enter open • m multi-select • r refresh • q quit"
}
