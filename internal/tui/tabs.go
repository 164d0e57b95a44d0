package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/snaptile/internal/wm"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabWindows Tab = iota
	TabLayouts
	TabSettings
	tabCount
)

// tabInfo holds the label and key hints of each tab, indexed by Tab.
var tabInfo = [tabCount]struct {
	name string
	keys string
}{
	TabWindows:  {"Windows", "enter: focus  x: close  h/l/t/b: snap  m: maximize  r: restore  n: cycle  M: minimize all"},
	TabLayouts:  {"Layouts", "enter: tile  +/-: preview count"},
	TabSettings: {"Settings", "e: edit  ctrl+s: save"},
}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "?"
	}
	return tabInfo[t].name
}

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236"))
	activeTabStyle = tabStyle.Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	barStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("250")).Background(lipgloss.Color("235"))
	helpStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("241"))

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func renderTabBar(active Tab, width int) string {
	cells := make([]string, 0, 2*tabCount)
	gap := lipgloss.NewStyle().Background(lipgloss.Color("235")).Render(" ")
	for t := Tab(0); t < tabCount; t++ {
		if t > 0 {
			cells = append(cells, gap)
		}
		style := tabStyle
		if t == active {
			style = activeTabStyle
		}
		cells = append(cells, style.Render(fmt.Sprintf("%d:%s", t+1, t)))
	}
	return lipgloss.NewStyle().Width(width).MarginBottom(1).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

// renderStatusBar shows whether the daemon answers and, if so, a one-line
// desktop summary.
func renderStatusBar(connected bool, snapshot wm.Snapshot, defaultLayout string, width int) string {
	if !connected {
		return barStyle.Width(width).Render(dimStyle.Render("●") + " daemon not running")
	}

	var visible int
	active := "-"
	for _, w := range snapshot.Windows {
		if !w.Minimized {
			visible++
		}
		if w.ID == snapshot.ActiveID {
			active = w.Title
		}
	}
	fields := []string{
		okStyle.Render("●") + " daemon connected",
		fmt.Sprintf("windows:%d/%d", visible, len(snapshot.Windows)),
		fmt.Sprintf("bounds:%d×%d", snapshot.Bounds.Width, snapshot.Bounds.Height),
		"active:" + active,
	}
	if defaultLayout != "" {
		fields = append(fields, "default:"+defaultLayout)
	}
	return barStyle.Width(width).Render(strings.Join(fields, "  "))
}

func renderHelpBar(active Tab, width int) string {
	keys := "tab: switch  q: quit"
	if active >= 0 && active < tabCount {
		keys = tabInfo[active].keys + "  " + keys
	}
	return helpStyle.Width(width).Render(keys)
}
