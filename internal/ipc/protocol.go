package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/hotkeys"
	"github.com/1broseidon/snaptile/internal/wm"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload       CommandType = "RELOAD"
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandListWindows  CommandType = "LIST_WINDOWS"
	CommandListLayouts  CommandType = "LIST_LAYOUTS"
	CommandCreateWindow CommandType = "CREATE_WINDOW"
	CommandFocus        CommandType = "FOCUS"
	CommandClose        CommandType = "CLOSE"
	CommandCommand      CommandType = "COMMAND"
	CommandTile         CommandType = "TILE"
	CommandPointerDown  CommandType = "POINTER_DOWN"
	CommandPointerMove  CommandType = "POINTER_MOVE"
	CommandPointerUp    CommandType = "POINTER_UP"
	CommandDoubleClick  CommandType = "DOUBLE_CLICK"
	CommandSetViewport  CommandType = "SET_VIEWPORT"
	CommandKey          CommandType = "KEY"
	CommandListHotkeys  CommandType = "LIST_HOTKEYS"
	CommandSubscribe    CommandType = "SUBSCRIBE"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	desktop.Status
	Subscribers   int  `json:"subscribers"`
	DaemonRunning bool `json:"daemon_running"`
}

type LayoutsData struct {
	Layouts       []string `json:"layouts"`
	DefaultLayout string   `json:"default_layout"`
}

// CreateWindowPayload opens a window. Content is stored as an opaque handle.
type CreateWindowPayload struct {
	Title   string          `json:"title"`
	Width   int             `json:"width,omitempty"`
	Height  int             `json:"height,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// WindowPayload addresses one window for FOCUS, CLOSE and DOUBLE_CLICK.
type WindowPayload struct {
	ID int `json:"id"`
}

type CommandPayload struct {
	Name string `json:"name"`
}

// PointerPayload carries pointer events. Edge is empty for a drag, or a
// handle such as "e", "sw" or "n" for a resize.
type PointerPayload struct {
	Pointer      int    `json:"pointer"`
	ID           int    `json:"id,omitempty"`
	Edge         string `json:"edge,omitempty"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	SuppressSnap bool   `json:"suppress_snap,omitempty"`
}

type PointerDownData struct {
	Started bool `json:"started"`
}

type ViewportPayload struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ViewportData struct {
	Changed bool `json:"changed"`
}

// KeyPayload forwards a key chord from the host, e.g. "super+left".
type KeyPayload struct {
	Chord string `json:"chord"`
}

// KeyData reports the command a chord ran. Handled is false for unbound
// chords, which the host should process itself.
type KeyData struct {
	Command string `json:"command,omitempty"`
	Handled bool   `json:"handled"`
}

type HotkeysData struct {
	Bindings []hotkeys.Binding `json:"bindings"`
}

// SubscribeData acknowledges SUBSCRIBE. Snapshot events follow on the same
// connection.
type SubscribeData struct {
	ID string `json:"id"`
}

// SnapshotEvent is one streamed line after SUBSCRIBE. Seq counts the
// snapshots delivered to this subscriber; gaps mean intermediate snapshots
// were replaced by newer ones.
type SnapshotEvent struct {
	Subscriber string      `json:"subscriber"`
	Seq        uint64      `json:"seq"`
	Snapshot   wm.Snapshot `json:"snapshot"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("command is required")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func decodePayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
