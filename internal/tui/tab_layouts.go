package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/platform"
)

// layoutItem implements list.Item for the layout picker sidebar.
type layoutItem struct {
	name      string
	isDefault bool
}

func (i layoutItem) Title() string {
	if i.isDefault {
		return i.name + " (default)"
	}
	return i.name
}

func (i layoutItem) Description() string { return "" }
func (i layoutItem) FilterValue() string { return i.name }

// LayoutsTab browses the named layouts and tiles the desktop with one.
type LayoutsTab struct {
	list   list.Model
	client Client
	cfg    *config.Config

	defaultLayout string
	bounds        platform.Rect
	tileCount     int

	width  int
	height int
}

// NewLayoutsTab creates a LayoutsTab. cfg supplies layout definitions for the
// preview and may be nil.
func NewLayoutsTab(client Client, cfg *config.Config) LayoutsTab {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Layouts"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return LayoutsTab{list: l, client: client, cfg: cfg, tileCount: 4}
}

// SetLayouts replaces the layout names, keeping the selection by name.
func (lt *LayoutsTab) SetLayouts(names []string, defaultLayout string) tea.Cmd {
	selected := lt.selectedName()
	lt.defaultLayout = defaultLayout
	items := make([]list.Item, 0, len(names))
	sel := -1
	for i, name := range names {
		items = append(items, layoutItem{name: name, isDefault: name == defaultLayout})
		if name == selected || (sel < 0 && selected == "" && name == defaultLayout) {
			sel = i
		}
	}
	cmd := lt.list.SetItems(items)
	if sel >= 0 {
		lt.list.Select(sel)
	}
	return cmd
}

// SetDesktop updates the preview area and window count.
func (lt *LayoutsTab) SetDesktop(bounds platform.Rect, visible int) {
	lt.bounds = bounds
	if visible > 0 {
		lt.tileCount = visible
	}
}

func (lt LayoutsTab) selectedName() string {
	if item, ok := lt.list.SelectedItem().(layoutItem); ok {
		return item.name
	}
	return ""
}

// Update implements tea.Model.
func (lt LayoutsTab) Update(msg tea.Msg) (LayoutsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		lt.width = msg.Width
		lt.height = msg.Height
		lt.list.SetSize(lt.sidebarWidth(), max(lt.height-2, 1))
		return lt, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			name := lt.selectedName()
			if name == "" {
				return lt, nil
			}
			return lt, runAction("tiled "+name, func() error {
				return lt.client.Tile(desktop.TileRequest{Layout: name})
			})
		case "+", "=":
			lt.tileCount = min(lt.tileCount+1, 16)
			return lt, nil
		case "-":
			lt.tileCount = max(lt.tileCount-1, 1)
			return lt, nil
		}
	}

	var cmd tea.Cmd
	lt.list, cmd = lt.list.Update(msg)
	return lt, cmd
}

func (lt LayoutsTab) sidebarWidth() int {
	return min(max(lt.width/4, 20), 32)
}

// View implements tea.Model.
func (lt LayoutsTab) View() string {
	if lt.width == 0 || lt.height == 0 {
		return ""
	}

	sidebarWidth := lt.sidebarWidth()
	previewWidth := max(lt.width-sidebarWidth-3, 10)
	h := max(lt.height-2, 3)

	sidebar := lipgloss.NewStyle().Width(sidebarWidth).Height(h).Render(lt.list.View())
	sep := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Render(strings.TrimSuffix(strings.Repeat("│\n", h), "\n"))
	columns := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " "+sep, lt.renderPreview(previewWidth, h))

	return lipgloss.JoinVertical(lipgloss.Left, columns, dimStyle.Render(lt.summary()))
}

func (lt LayoutsTab) layout() *config.Layout {
	name := lt.selectedName()
	if name == "" || lt.cfg == nil {
		return nil
	}
	layout, ok := lt.cfg.Layouts[name]
	if !ok {
		return nil
	}
	return &layout
}

func (lt LayoutsTab) renderPreview(width, height int) string {
	layout := lt.layout()
	if layout == nil {
		return dimStyle.Render("no preview")
	}
	return strings.Join(renderLayoutPreview(layout, lt.tileCount, width, height), "\n")
}

func (lt LayoutsTab) summary() string {
	layout := lt.layout()
	if layout == nil || lt.bounds.Empty() {
		return ""
	}
	gap := 0
	if lt.cfg != nil {
		gap = lt.cfg.GapSize
	}
	return "  " + summarizeLayout(layout, lt.tileCount, gap, lt.bounds)
}
