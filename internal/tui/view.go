package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/state"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(constants.AppName))
	b.WriteString("\n\n")

	if m.screen == screenInput {
		b.WriteString("Paste a share link:\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(m.noticeView())
		if m.nav.Current != "" {
			b.WriteString(helpStyle.Render("enter open • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("enter open • esc quit"))
		}
		return b.String()
	}

	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.choice != nil {
		b.WriteString(m.choiceView())
		b.WriteString("\n")
	} else {
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.noticeView())
	if line := m.transfersView(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.keys.helpLine()))
	return b.String()
}

func (m *Model) headerView() string {
	back := "esc exit"
	if m.nav.HasHistory {
		back = "← esc back"
	}
	crumb := m.nav.Breadcrumb
	if crumb == "" {
		crumb = constants.BreadcrumbRoot
	}
	line := breadcrumbStyle.Render(fmt.Sprintf("%s  ·  %s", back, crumb))
	if sortBy := m.ctrl.Listing().Sort(); sortBy != state.SortServer {
		line += breadcrumbStyle.Render("  ·  sorted by " + sortBy)
	}
	if m.loading {
		line += "  " + m.spinner.View() + " loading"
	}
	return line
}

func (m *Model) listView() string {
	if len(m.entries) == 0 {
		if m.loading {
			return labelStyle.Render("  …") + "\n"
		}
		return labelStyle.Render("  (nothing to show)") + "\n"
	}

	start, end := m.visibleRange()
	var b strings.Builder
	for i := start; i < end; i++ {
		entry := m.entries[i]
		cursor := "  "
		name := normalStyle.Render(entry.Name)
		if entry.IsFolder {
			name = folderStyle.Render(entry.Name)
		}
		if i == m.cursor {
			cursor = selectedStyle.Render("› ")
			name = selectedStyle.Render(entry.Name)
		}
		fmt.Fprintf(&b, "%s%s %s  %s\n", cursor, rowIcon(entry), name, labelStyle.Render(RowLabel(entry)))
	}
	if end < len(m.entries) || start > 0 {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.entries))))
		b.WriteString("\n")
	}
	return b.String()
}

// visibleRange keeps the cursor on screen.
func (m *Model) visibleRange() (int, int) {
	rows := m.height - 9
	if rows < 5 {
		rows = 5
	}
	if len(m.entries) <= rows {
		return 0, len(m.entries)
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > len(m.entries) {
		start = len(m.entries) - rows
	}
	return start, start + rows
}

func (m *Model) choiceView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.choice.Name))
	b.WriteString("\n\n")
	for i, opt := range []string{OptionStream, OptionDownload} {
		if i == m.choiceCursor {
			b.WriteString(selectedStyle.Render(fmt.Sprintf("› %d. %s", i+1, opt)))
		} else {
			b.WriteString(normalStyle.Render(fmt.Sprintf("  %d. %s", i+1, opt)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter choose • esc cancel"))
	return modalStyle.Render(b.String())
}

func (m *Model) noticeView() string {
	if m.notice == "" {
		return "\n"
	}
	var style lipgloss.Style
	switch m.noticeLevel {
	case events.NoticeError:
		style = errorStyle
	case events.NoticeWarn:
		style = warnStyle
	default:
		style = infoStyle
	}
	return style.Render(m.notice) + "\n"
}

func (m *Model) transfersView() string {
	if m.transfers == nil {
		return ""
	}
	stats := m.transfers.GetStats()
	if stats.Total() == 0 {
		return ""
	}
	line := fmt.Sprintf("downloads: %d active, %d queued, %d done", stats.Active, stats.Queued, stats.Completed)
	if stats.Failed > 0 {
		line += fmt.Sprintf(", %d failed", stats.Failed)
	}
	return labelStyle.Render(line)
}
