package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/wm"
)

// model is the root bubbletea model for the TUI.
type model struct {
	configPath string
	cfg        *config.Config
	client     Client

	activeTab Tab

	windowsTab  WindowsTab
	layoutsTab  LayoutsTab
	settingsTab SettingsTab

	// Save overlay
	originalConfig *config.Config
	saveOverlay    SaveOverlay

	// Daemon state
	connected     bool
	snapshot      wm.Snapshot
	defaultLayout string

	statusText string
	statusErr  bool
	statusSeq  int

	width  int
	height int
}

func newModel(configPath string, client Client) model {
	m := model{
		configPath: configPath,
		client:     client,
		activeTab:  TabWindows,
	}
	m.loadConfig()
	if m.cfg != nil {
		m.originalConfig = cloneConfig(m.cfg)
	}

	m.windowsTab = NewWindowsTab(client)
	m.layoutsTab = NewLayoutsTab(client, m.cfg)
	m.settingsTab = NewSettingsTab(m.cfg)
	return m
}

func (m *model) loadConfig() {
	var res *config.LoadResult
	var err error
	if m.configPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(m.configPath)
	}
	if err != nil {
		m.setStatus(fmt.Sprintf("config: %v", err), true)
		return
	}
	m.cfg = res.Config
}

func (m *model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.statusText = text
	m.statusErr = isErr
	seq := m.statusSeq
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// save writes cfg and asks a connected daemon to reload it.
func (m model) save(cfg *config.Config) (bool, error) {
	path := m.configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return false, err
		}
		path = p
	}
	if err := cfg.Save(path); err != nil {
		return false, err
	}
	if !m.connected {
		return false, nil
	}
	return m.client.Reload() == nil, nil
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + message (1) + help bar (1)
	return max(m.height-5, 1)
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshot(m.client), fetchLayouts(m.client))
}

func (m model) resize(msg tea.WindowSizeMsg) model {
	m.width = msg.Width
	m.height = msg.Height
	sub := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
	m.windowsTab, _ = m.windowsTab.Update(sub)
	m.layoutsTab, _ = m.layoutsTab.Update(sub)
	m.settingsTab, _ = m.settingsTab.Update(sub)
	return m
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Daemon messages are handled regardless of focus.
	switch msg := msg.(type) {
	case snapshotMsg:
		m.connected = true
		m.snapshot = wm.Snapshot(msg)
		visible := 0
		for _, w := range m.snapshot.Windows {
			if !w.Minimized {
				visible++
			}
		}
		m.layoutsTab.SetDesktop(m.snapshot.Bounds, visible)
		return m, m.windowsTab.SetSnapshot(m.snapshot)

	case layoutsMsg:
		m.defaultLayout = msg.DefaultLayout
		return m, m.layoutsTab.SetLayouts(msg.Layouts, msg.DefaultLayout)

	case disconnectedMsg:
		m.connected = false
		return m, m.setStatus(msg.err.Error(), true)

	case actionMsg:
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error(), true)
		}
		return m, m.setStatus(msg.text, false)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusText = ""
		}
		return m, nil

	case tea.WindowSizeMsg:
		return m.resize(msg), nil
	}

	// Save overlay captures all input when active.
	if m.saveOverlay.Active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			if km.String() == "ctrl+c" {
				return m, tea.Quit
			}
			m.saveOverlay = m.saveOverlay.Update(km, m.cfg, m.save)
			if m.saveOverlay.SaveSucceeded() {
				m.originalConfig = cloneConfig(m.cfg)
			}
		}
		return m, nil
	}

	km, isKey := msg.(tea.KeyMsg)
	if isKey && km.String() == "ctrl+s" {
		if m.cfg != nil {
			m.saveOverlay.Show(m.originalConfig, m.cfg)
		}
		return m, nil
	}

	// The settings form consumes keys while editing; only ctrl+c escapes.
	if m.activeTab == TabSettings && m.settingsTab.editing {
		if isKey && km.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.settingsTab, cmd = m.settingsTab.Update(msg)
		return m, cmd
	}

	if isKey {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1":
			m.activeTab = TabWindows
			return m, nil
		case "2":
			m.activeTab = TabLayouts
			return m, nil
		case "3":
			m.activeTab = TabSettings
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabWindows:
		m.windowsTab, cmd = m.windowsTab.Update(msg)
	case TabLayouts:
		m.layoutsTab, cmd = m.layoutsTab.Update(msg)
	case TabSettings:
		m.settingsTab, cmd = m.settingsTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.snapshot, m.defaultLayout, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	var message string
	switch {
	case m.statusText == "":
		message = " "
	case m.statusErr:
		message = errorStyle.Render(" " + m.statusText)
	default:
		message = okStyle.Render(" " + m.statusText)
	}

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(tabBar) + lipgloss.Height(helpBar) + 1
	contentHeight := max(m.height-usedHeight, 1)

	var content string
	if m.saveOverlay.Active() {
		content = m.saveOverlay.View(m.width, contentHeight)
	} else {
		switch m.activeTab {
		case TabWindows:
			content = m.windowsTab.View()
		case TabLayouts:
			content = m.layoutsTab.View()
		case TabSettings:
			content = m.settingsTab.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		message,
		helpBar,
	)
}
