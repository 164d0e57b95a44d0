// Package tui is the terminal task manager for a running snaptile daemon.
package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/wm"
)

// Client is the subset of the IPC client the TUI drives.
type Client interface {
	ListWindows() (*wm.Snapshot, error)
	ListLayouts() (*ipc.LayoutsData, error)
	Focus(id int) error
	Close(id int) error
	Command(name string) error
	Tile(req desktop.TileRequest) error
	Reload() error
	Subscribe(ctx context.Context, fn func(ipc.SnapshotEvent)) error
}

var _ Client = (*ipc.Client)(nil)

// snapshotMsg carries a fresh registry snapshot from the daemon.
type snapshotMsg wm.Snapshot

// layoutsMsg carries the daemon's layout names.
type layoutsMsg ipc.LayoutsData

// disconnectedMsg reports that the daemon could not be reached.
type disconnectedMsg struct{ err error }

// actionMsg is sent after an IPC action completes.
type actionMsg struct {
	text string
	err  error
}

// clearStatusMsg clears the status line after a delay.
type clearStatusMsg struct{ seq int }

const statusTimeout = 3 * time.Second

func runAction(text string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{text: text, err: fn()}
	}
}

func fetchSnapshot(client Client) tea.Cmd {
	return func() tea.Msg {
		s, err := client.ListWindows()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return snapshotMsg(*s)
	}
}

func fetchLayouts(client Client) tea.Cmd {
	return func() tea.Msg {
		data, err := client.ListLayouts()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return layoutsMsg(*data)
	}
}

func requireTTY() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	return nil
}

// Run starts the task manager against client. configPath selects the file
// the settings tab saves to; empty means the default location.
func Run(configPath string, client Client) error {
	if err := requireTTY(); err != nil {
		return err
	}

	m := newModel(configPath, client)
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := client.Subscribe(ctx, func(ev ipc.SnapshotEvent) {
			p.Send(snapshotMsg(ev.Snapshot))
		})
		if err != nil && ctx.Err() == nil {
			p.Send(disconnectedMsg{err: err})
		}
	}()

	_, err := p.Run()
	return err
}
