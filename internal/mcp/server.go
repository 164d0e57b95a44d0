// Package mcp exposes the window manager to MCP clients over stdio. Every
// tool forwards to the running daemon over IPC.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/wm"
)

const (
	ServerName    = "snaptile"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	ListWindows() (*wm.Snapshot, error)
	ListLayouts() (*ipc.LayoutsData, error)
	CreateWindow(title string, width, height int) (*wm.Info, error)
	Focus(id int) error
	Close(id int) error
	Command(name string) error
	Tile(req desktop.TileRequest) error
	Key(chord string) (*ipc.KeyData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for snaptile window control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a new MCP server backed by daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{daemon: daemon}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List open windows in z order (bottom first) with their geometry, snap state and which one is active.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layouts",
		Description: "List the named tiling layouts and the default layout.",
	}, s.handleListLayouts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Open a window. Its geometry is restored from the last window with the same title, otherwise it cascades from the top-left.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Raise a window to the top and make it active.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a window. Its geometry is remembered by title.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "window_command",
		Description: "Run a named command against the active window (snap, maximize, restore) or all windows (tile, minimize-all, cycle-next).",
	}, s.handleWindowCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "tile_windows",
		Description: "Tile windows with a named layout, N equal columns, or a rows x cols grid. With no arguments the default layout is applied.",
	}, s.handleTileWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "press_key",
		Description: "Press a key chord such as super+left or alt+tab. Bound chords run their window command; unbound chords do nothing.",
	}, s.handlePressKey)
}
