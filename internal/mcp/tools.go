package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/wm"
)

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	snapshot, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	out := ListWindowsOutput{
		ActiveID: snapshot.ActiveID,
		Bounds: BoundsInfo{
			X:      snapshot.Bounds.X,
			Y:      snapshot.Bounds.Y,
			Width:  snapshot.Bounds.Width,
			Height: snapshot.Bounds.Height,
		},
		Windows: make([]WindowInfo, 0, len(snapshot.Windows)),
	}
	for _, w := range snapshot.Windows {
		if w.Minimized && !args.IncludeMinimized {
			continue
		}
		out.Windows = append(out.Windows, windowInfo(w, snapshot.ActiveID))
	}
	return nil, out, nil
}

func (s *Server) handleListLayouts(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListLayoutsInput) (*mcpsdk.CallToolResult, ListLayoutsOutput, error) {
	data, err := s.daemon.ListLayouts()
	if err != nil {
		return nil, ListLayoutsOutput{}, err
	}
	out := ListLayoutsOutput{Layouts: data.Layouts, DefaultLayout: data.DefaultLayout}
	if out.Layouts == nil {
		out.Layouts = []string{}
	}
	return nil, out, nil
}

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return nil, ActionOutput{}, fmt.Errorf("title is required")
	}
	if args.Width < 0 || args.Height < 0 {
		return nil, ActionOutput{}, fmt.Errorf("width and height must be >= 0")
	}
	info, err := s.daemon.CreateWindow(title, args.Width, args.Height)
	if err != nil {
		return nil, ActionOutput{}, err
	}
	w := windowInfo(*info, info.ID)
	return nil, ActionOutput{OK: true, ActiveID: info.ID, Window: &w}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowIDInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.requireWindow(args.ID); err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.daemon.Focus(args.ID); err != nil {
		return nil, ActionOutput{}, err
	}
	return s.actionResult(args.ID)
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowIDInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.requireWindow(args.ID); err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.daemon.Close(args.ID); err != nil {
		return nil, ActionOutput{}, err
	}
	return s.actionResult(0)
}

func (s *Server) handleWindowCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowCommandInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	name := strings.TrimSpace(args.Command)
	if !slices.Contains(wm.Commands(), name) {
		return nil, ActionOutput{}, fmt.Errorf("unknown command %q; available: %s", name, strings.Join(wm.Commands(), ", "))
	}
	if err := s.daemon.Command(name); err != nil {
		return nil, ActionOutput{}, err
	}
	return s.actionResult(-1)
}

func (s *Server) handleTileWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args TileWindowsInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	req := desktop.TileRequest{
		Layout:  strings.TrimSpace(args.Layout),
		Columns: args.Columns,
		Rows:    args.Rows,
		Cols:    args.Cols,
	}
	if err := req.Validate(); err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.daemon.Tile(req); err != nil {
		return nil, ActionOutput{}, err
	}
	return s.actionResult(-1)
}

func (s *Server) handlePressKey(_ context.Context, _ *mcpsdk.CallToolRequest, args PressKeyInput) (*mcpsdk.CallToolResult, PressKeyOutput, error) {
	chord := strings.TrimSpace(args.Chord)
	if chord == "" {
		return nil, PressKeyOutput{}, fmt.Errorf("chord is required")
	}
	data, err := s.daemon.Key(chord)
	if err != nil {
		return nil, PressKeyOutput{}, err
	}
	snapshot, err := s.daemon.ListWindows()
	if err != nil {
		return nil, PressKeyOutput{}, err
	}
	return nil, PressKeyOutput{Handled: data.Handled, Command: data.Command, ActiveID: snapshot.ActiveID}, nil
}

func (s *Server) requireWindow(id int) error {
	if id <= 0 {
		return fmt.Errorf("id must be > 0")
	}
	snapshot, err := s.daemon.ListWindows()
	if err != nil {
		return err
	}
	if _, ok := snapshot.Window(id); !ok {
		return fmt.Errorf("no window with id %d", id)
	}
	return nil
}

// actionResult reports the state after a mutation. id selects the window
// to include: 0 for none, -1 for the active window.
func (s *Server) actionResult(id int) (*mcpsdk.CallToolResult, ActionOutput, error) {
	snapshot, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ActionOutput{}, err
	}
	out := ActionOutput{OK: true, ActiveID: snapshot.ActiveID}
	if id == -1 {
		id = snapshot.ActiveID
	}
	if w, ok := snapshot.Window(id); ok && id > 0 {
		info := windowInfo(w, snapshot.ActiveID)
		out.Window = &info
	}
	return nil, out, nil
}
