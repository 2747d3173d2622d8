package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"profiledeck/internal/profile"
)

const dateLayout = "2006-01-02"

// ColumnTitles are the headers shared by the static and live tables.
func ColumnTitles() []string {
	return []string{"Name", "Team", "UUID", "Created", "Expires"}
}

// RecordRow formats r as table cells. Expired profiles are flagged in the
// expiry column.
func RecordRow(r profile.Record, now time.Time) []string {
	expires := r.ExpiresAt.Local().Format(dateLayout)
	switch {
	case r.Expired(now):
		expires += " (expired)"
	case r.ExpiresWithin(now, 30*24*time.Hour):
		expires += " (soon)"
	}
	return []string{
		r.Name,
		r.TeamName,
		r.UUID,
		r.CreatedAt.Local().Format(dateLayout),
		expires,
	}
}

// SimpleTable renders static rows for non-interactive output.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	header := styles.Bold.PaddingRight(2)
	cell := styles.Body.PaddingRight(2)

	total := 0
	for i, h := range t.Headers {
		sb.WriteString(header.Width(widths[i] + 2).Render(h))
		total += widths[i] + 2
	}
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		for i, c := range row {
			if i < len(widths) {
				sb.WriteString(cell.Width(widths[i] + 2).Render(c))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderDetails formats every decoded field of r.
func RenderDetails(r profile.Record, now time.Time, styles Styles) string {
	status := styles.Success.Render("valid")
	switch {
	case r.Expired(now):
		status = styles.Error.Render("expired")
	case r.ExpiresWithin(now, 30*24*time.Hour):
		status = styles.Warning.Render("expires soon")
	}

	devices := "none"
	switch {
	case r.ProvisionsAllDevices:
		devices = "all (enterprise)"
	case r.DeviceCount > 0:
		devices = strconv.Itoa(r.DeviceCount)
	}

	lines := [][2]string{
		{"Name", r.Name},
		{"UUID", r.UUID},
		{"Team", r.TeamName},
		{"Team ID", r.TeamID},
		{"App ID name", r.AppIDName},
		{"Platforms", strings.Join(r.Platforms, ", ")},
		{"Devices", devices},
		{"Created", r.CreatedAt.Local().Format(time.RFC1123)},
		{"Expires", r.ExpiresAt.Local().Format(time.RFC1123)},
		{"Status", status},
		{"File", r.SourcePath},
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(r.Name))
	sb.WriteString("\n")
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		sb.WriteString(styles.Label.Render(l[0]))
		sb.WriteString(styles.Body.Render(l[1]))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
