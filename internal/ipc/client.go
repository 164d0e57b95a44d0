package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/runtimepath"
	"github.com/1broseidon/snaptile/internal/wm"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for socketPath.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, command CommandType, payload any) error {
	req := Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}
	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := conn.Write(append(reqData, '\n')); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// sendRequest sends one request and decodes the response data into out
// when out is non-nil.
func (c *Client) sendRequest(command CommandType, payload any, out any) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, command, payload); err != nil {
		return err
	}
	resp, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.sendRequest(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.sendRequest(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns the current snapshot.
func (c *Client) ListWindows() (*wm.Snapshot, error) {
	var snapshot wm.Snapshot
	if err := c.sendRequest(CommandListWindows, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListLayouts retrieves available layouts and the default.
func (c *Client) ListLayouts() (*LayoutsData, error) {
	var data LayoutsData
	if err := c.sendRequest(CommandListLayouts, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateWindow opens a window. Zero sizes use the daemon defaults.
func (c *Client) CreateWindow(title string, width, height int) (*wm.Info, error) {
	var info wm.Info
	payload := CreateWindowPayload{Title: title, Width: width, Height: height}
	if err := c.sendRequest(CommandCreateWindow, payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Focus raises a window.
func (c *Client) Focus(id int) error {
	return c.sendRequest(CommandFocus, WindowPayload{ID: id}, nil)
}

// Close closes a window.
func (c *Client) Close(id int) error {
	return c.sendRequest(CommandClose, WindowPayload{ID: id}, nil)
}

// DoubleClick toggles a window between maximized and restored.
func (c *Client) DoubleClick(id int) error {
	return c.sendRequest(CommandDoubleClick, WindowPayload{ID: id}, nil)
}

// Command runs a named window command such as snap-left or tile-2x2.
func (c *Client) Command(name string) error {
	return c.sendRequest(CommandCommand, CommandPayload{Name: name}, nil)
}

// Key forwards a key chord and reports the command it ran, if any.
func (c *Client) Key(chord string) (*KeyData, error) {
	var data KeyData
	if err := c.sendRequest(CommandKey, KeyPayload{Chord: chord}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListHotkeys returns the daemon's active key bindings.
func (c *Client) ListHotkeys() (*HotkeysData, error) {
	var data HotkeysData
	if err := c.sendRequest(CommandListHotkeys, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Tile runs a tiling operation.
func (c *Client) Tile(req desktop.TileRequest) error {
	return c.sendRequest(CommandTile, req, nil)
}

// PointerDown starts a gesture and reports whether it began.
func (c *Client) PointerDown(p PointerPayload) (bool, error) {
	var data PointerDownData
	if err := c.sendRequest(CommandPointerDown, p, &data); err != nil {
		return false, err
	}
	return data.Started, nil
}

// PointerMove reports a pointer position.
func (c *Client) PointerMove(p PointerPayload) error {
	return c.sendRequest(CommandPointerMove, p, nil)
}

// PointerUp ends the gesture owned by pointer.
func (c *Client) PointerUp(pointer int) error {
	return c.sendRequest(CommandPointerUp, PointerPayload{Pointer: pointer}, nil)
}

// SetViewport reports the host viewport and whether it changed.
func (c *Client) SetViewport(v ViewportPayload) (bool, error) {
	var data ViewportData
	if err := c.sendRequest(CommandSetViewport, v, &data); err != nil {
		return false, err
	}
	return data.Changed, nil
}

// Subscribe streams snapshots to fn until ctx is done or the daemon closes
// the connection. fn runs on the calling goroutine.
func (c *Client) Subscribe(ctx context.Context, fn func(SnapshotEvent)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, CommandSubscribe, nil); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	for {
		resp, err := readResponse(reader)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var event SnapshotEvent
		if err := json.Unmarshal(resp.Data, &event); err != nil {
			return fmt.Errorf("failed to parse snapshot event: %w", err)
		}
		fn(event)
	}
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
