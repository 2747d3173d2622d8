package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"profiledeck/internal/collection"
	"profiledeck/internal/logging"
	"profiledeck/internal/profile"
)

// Options configures the live browser.
type Options struct {
	Root string
	Sort profile.SortKey
}

type snapshotMsg collection.Snapshot

type reloadDoneMsg struct{ err error }

type deleteDoneMsg struct {
	rec profile.Record
	err error
}

// Model is the bubbletea model for the live profile browser. It only talks
// to the collection through collection.Controller.
type Model struct {
	ctrl        collection.Controller
	snaps       <-chan collection.Snapshot
	unsubscribe func()
	root        string

	snap    collection.Snapshot
	table   table.Model
	search  textinput.Model
	sortKey profile.SortKey

	searching bool
	confirm   *profile.Record // pending deletion awaiting y/n
	status    string
	statusErr bool

	width  int
	height int
	now    func() time.Time
	styles Styles
}

// New creates the browser over ctrl and subscribes to its snapshots.
func New(ctrl collection.Controller, opts Options) Model {
	cols := make([]table.Column, 0, len(ColumnTitles()))
	for _, title := range ColumnTitles() {
		cols = append(cols, table.Column{Title: title, Width: 16})
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	si := textinput.New()
	si.Placeholder = "Search name, team or UUID..."
	si.CharLimit = 120
	si.Width = 40
	si.Prompt = "/ "

	snaps, unsubscribe := ctrl.Subscribe()
	return Model{
		ctrl:        ctrl,
		snaps:       snaps,
		unsubscribe: unsubscribe,
		root:        opts.Root,
		table:       t,
		search:      si,
		sortKey:     opts.Sort,
		now:         time.Now,
		styles:      DefaultStyles(),
	}
}

// Init starts listening for snapshots and kicks off the first scan.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.reload())
}

// waitForSnapshot delivers the next published state.
func (m Model) waitForSnapshot() tea.Cmd {
	snaps := m.snaps
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m Model) reload() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return reloadDoneMsg{err: ctrl.Reload(context.Background())}
	}
}

func (m Model) delete(rec profile.Record) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return deleteDoneMsg{rec: rec, err: ctrl.Delete(context.Background(), rec)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = collection.Snapshot(msg)
		m.sortKey = m.snap.Sort
		m.refreshRows()
		return m, m.waitForSnapshot()

	case reloadDoneMsg:
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("reload: %v", msg.err)
		}
		return m, nil

	case deleteDoneMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Delete failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Moved %q to the trash", msg.rec.Name), false)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.ctrl.SetQuery("")
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != before {
		m.ctrl.SetQuery(q)
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rec := *m.confirm
	m.confirm = nil
	if msg.String() == "y" {
		m.setStatus(fmt.Sprintf("Deleting %q...", rec.Name), false)
		return m, m.delete(rec)
	}
	m.setStatus("Delete cancelled", false)
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "s":
		m.sortKey = nextSort(m.sortKey)
		m.ctrl.Sort(m.sortKey.Field, m.sortKey.Ascending)
		return m, nil
	case "r":
		if m.sortKey.Field == profile.FieldNone {
			return m, nil
		}
		m.sortKey.Ascending = !m.sortKey.Ascending
		m.ctrl.Sort(m.sortKey.Field, m.sortKey.Ascending)
		return m, nil
	case "R":
		m.setStatus("Reloading...", false)
		return m, m.reload()
	case "d":
		if rec, ok := m.Selected(); ok {
			m.confirm = &rec
			m.setStatus(fmt.Sprintf("Move %q to the trash? (y/n)", rec.Name), false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// nextSort cycles through the sortable fields, starting ascending.
func nextSort(k profile.SortKey) profile.SortKey {
	i := slices.Index(profile.Fields, k.Field)
	return profile.SortKey{Field: profile.Fields[(i+1)%len(profile.Fields)], Ascending: true}
}

// Selected returns the record under the cursor.
func (m Model) Selected() (profile.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.snap.Visible) {
		return profile.Record{}, false
	}
	return m.snap.Visible[i], true
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m *Model) refreshRows() {
	now := m.now()
	rows := make([]table.Row, 0, len(m.snap.Visible))
	for _, r := range m.snap.Visible {
		rows = append(rows, table.Row(RecordRow(r, now)))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// resize splits the width across columns, giving name and team the most.
func (m *Model) resize() {
	if m.width <= 0 {
		return
	}
	weights := []int{4, 3, 5, 2, 3}
	total := 0
	for _, w := range weights {
		total += w
	}
	avail := max(m.width-len(weights)*2, len(weights)*6)
	cols := m.table.Columns()
	for i := range cols {
		cols[i].Width = max(avail*weights[i]/total, 6)
	}
	m.table.SetColumns(cols)
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(m.height-6, 3))
}

// View renders the browser.
func (m Model) View() string {
	var sb strings.Builder

	title := "Provisioning profiles"
	if m.root != "" {
		title += "  " + m.styles.Muted.Render(m.root)
	}
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		sb.WriteString(m.search.View())
		sb.WriteString("\n")
	}

	sb.WriteString(m.table.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	return sb.String()
}

func (m Model) statusLine() string {
	var parts []string
	switch {
	case m.snap.Loading:
		parts = append(parts, m.styles.Warning.Render("Loading..."))
	case m.snap.Err != nil:
		parts = append(parts, m.styles.Error.Render("Error: "+m.snap.Err.Error()))
	}

	parts = append(parts, fmt.Sprintf("%d of %d", len(m.snap.Visible), len(m.snap.All)))
	if m.snap.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", m.snap.Skipped))
	}
	if m.sortKey.Field != profile.FieldNone {
		dir := "asc"
		if !m.sortKey.Ascending {
			dir = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort: %s %s", m.sortKey.Field, dir))
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, m.styles.Error.Render(m.status))
		} else {
			parts = append(parts, m.status)
		}
	}

	line := strings.Join(parts, " | ")
	help := m.styles.Muted.Render("/ search  s sort  r reverse  R reload  d delete  q quit")
	return m.styles.Footer.Render(line) + "\n" + m.styles.Footer.Render(help)
}
