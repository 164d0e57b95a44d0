package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/snaptile/internal/wm"
)

// windowItem implements list.Item for the window list.
type windowItem struct {
	info   wm.Info
	active bool
}

func (i windowItem) Title() string {
	prefix := "  "
	if i.active {
		prefix = "* "
	}
	title := fmt.Sprintf("%s%d %s", prefix, i.info.ID, i.info.Title)
	if i.info.Minimized {
		title += " (minimized)"
	}
	return title
}

func (i windowItem) Description() string {
	desc := fmt.Sprintf("%d,%d %d×%d", i.info.X, i.info.Y, i.info.W, i.info.H)
	if i.info.Snapped != "" {
		desc += " • " + string(i.info.Snapped)
	}
	return desc
}

func (i windowItem) FilterValue() string { return i.info.Title }

// snapKeys maps keys to the command run on the selected window.
var snapKeys = map[string]string{
	"h": wm.CommandSnapLeft,
	"l": wm.CommandSnapRight,
	"t": wm.CommandSnapTop,
	"b": wm.CommandSnapBottom,
	"m": wm.CommandMaximize,
	"r": wm.CommandRestore,
}

// globalKeys maps keys to commands that do not target a selection.
var globalKeys = map[string]string{
	"n": wm.CommandCycleNext,
	"M": wm.CommandMinimizeAll,
}

// WindowsTab lists windows top of the stack first with a live preview.
type WindowsTab struct {
	list     list.Model
	client   Client
	snapshot wm.Snapshot

	width  int
	height int
}

// NewWindowsTab creates a WindowsTab that acts through client.
func NewWindowsTab(client Client) WindowsTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Windows"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return WindowsTab{list: l, client: client}
}

// buildWindowItems orders windows top first.
func buildWindowItems(s wm.Snapshot) []list.Item {
	items := make([]list.Item, 0, len(s.Windows))
	for i := len(s.Windows) - 1; i >= 0; i-- {
		w := s.Windows[i]
		items = append(items, windowItem{info: w, active: w.ID == s.ActiveID})
	}
	return items
}

// SetSnapshot replaces the list contents, keeping the selection on the same
// window when it still exists.
func (wt *WindowsTab) SetSnapshot(s wm.Snapshot) tea.Cmd {
	selected := wt.SelectedID()
	wt.snapshot = s
	items := buildWindowItems(s)
	cmd := wt.list.SetItems(items)
	for i, item := range items {
		if item.(windowItem).info.ID == selected {
			wt.list.Select(i)
			break
		}
	}
	return cmd
}

// SelectedID returns the id of the highlighted window, or 0.
func (wt WindowsTab) SelectedID() int {
	if item, ok := wt.list.SelectedItem().(windowItem); ok {
		return item.info.ID
	}
	return 0
}

// Update implements tea.Model.
func (wt WindowsTab) Update(msg tea.Msg) (WindowsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		wt.width = msg.Width
		wt.height = msg.Height
		wt.list.SetSize(wt.listWidth(), max(wt.height-1, 1))
		return wt, nil

	case tea.KeyMsg:
		key := msg.String()
		id := wt.SelectedID()
		switch {
		case key == "enter" && id > 0:
			return wt, runAction(fmt.Sprintf("focused %d", id), func() error {
				return wt.client.Focus(id)
			})
		case key == "x" && id > 0:
			return wt, runAction(fmt.Sprintf("closed %d", id), func() error {
				return wt.client.Close(id)
			})
		case snapKeys[key] != "" && id > 0:
			name := snapKeys[key]
			return wt, runAction(fmt.Sprintf("%s %d", name, id), func() error {
				if err := wt.client.Focus(id); err != nil {
					return err
				}
				return wt.client.Command(name)
			})
		case globalKeys[key] != "":
			name := globalKeys[key]
			return wt, runAction(name, func() error {
				return wt.client.Command(name)
			})
		}
	}

	var cmd tea.Cmd
	wt.list, cmd = wt.list.Update(msg)
	return wt, cmd
}

func (wt WindowsTab) listWidth() int {
	return min(max(wt.width/3, 24), 48)
}

// View implements tea.Model.
func (wt WindowsTab) View() string {
	if wt.width == 0 || wt.height == 0 {
		return ""
	}
	listW := wt.listWidth()
	previewW := max(wt.width-listW-3, 10)
	h := max(wt.height-1, 3)

	var sidebar string
	if len(wt.snapshot.Windows) == 0 {
		sidebar = dimStyle.Render("  no windows")
	} else {
		sidebar = wt.list.View()
	}
	sidebar = lipgloss.NewStyle().Width(listW).Height(h).Render(sidebar)

	preview := strings.Join(renderDesktopPreview(wt.snapshot, previewW, h), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, "  ", preview)
}
