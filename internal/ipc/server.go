package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/gesture"
	"github.com/1broseidon/snaptile/internal/hotkeys"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/runtimepath"
	"github.com/1broseidon/snaptile/internal/wm"
)

const requestTimeout = 5 * time.Second

// maxRequestBytes bounds a single request line.
const maxRequestBytes = 1 << 20

// Desktop is the window state the server exposes. *desktop.Desktop
// implements it.
type Desktop interface {
	Status(ctx context.Context) (desktop.Status, error)
	Snapshot(ctx context.Context) (wm.Snapshot, error)
	Layouts(ctx context.Context) ([]string, string, error)
	CreateWindow(ctx context.Context, title string, content any, w, h int) (wm.Info, error)
	Focus(ctx context.Context, id int) error
	CloseWindow(ctx context.Context, id int) error
	Execute(ctx context.Context, name string) error
	Key(ctx context.Context, chord string) (string, error)
	Hotkeys(ctx context.Context) ([]hotkeys.Binding, error)
	Tile(ctx context.Context, req desktop.TileRequest) error
	PointerDown(ctx context.Context, pointer, id int, edge gesture.Edge, p platform.Point) (bool, error)
	PointerMove(pointer int, p platform.Point, suppressSnap bool) error
	PointerUp(ctx context.Context, pointer int) error
	DoubleClick(ctx context.Context, id int) error
	SetViewport(r platform.Rect) bool
	Subscribe(ctx context.Context, fn func(wm.Snapshot)) (func(), error)
}

var _ Desktop = (*desktop.Desktop)(nil)

// ServerConfig configures a Server.
type ServerConfig struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Desktop    Desktop
	// Reload reloads the configuration for RELOAD. Nil rejects RELOAD.
	Reload func(ctx context.Context) error
	Logger *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	desktop    Desktop
	reload     func(ctx context.Context) error
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	subMu       sync.Mutex
	subscribers map[string]struct{}

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Desktop == nil {
		return nil, fmt.Errorf("desktop is required")
	}
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath:  socketPath,
		desktop:     cfg.Desktop,
		reload:      cfg.Reload,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[string]struct{}),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection serves newline-delimited requests until the client
// closes the connection or subscribes.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	reader := bufio.NewReaderSize(conn, 4096)
	for {
		data, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && s.ctx.Err() == nil {
				s.logger.Debug("IPC read error", "error", err)
			}
			return
		}
		if len(data) == 0 {
			continue
		}

		req, err := ParseRequest(data)
		if err != nil {
			if !s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err))) {
				return
			}
			continue
		}

		if req.Command == CommandSubscribe {
			s.serveSubscription(conn, reader)
			return
		}

		if !s.writeResponse(conn, s.handleCommand(req)) {
			return
		}
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxRequestBytes {
			return nil, fmt.Errorf("request exceeds %d bytes", maxRequestBytes)
		}
		switch {
		case err == nil:
			return trimNewline(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return trimNewline(line), nil
		default:
			return nil, err
		}
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) bool {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return false
	}
	conn.SetWriteDeadline(time.Now().Add(requestTimeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		s.logger.Debug("failed to send response", "error", err)
		return false
	}
	return true
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	var (
		data any
		err  error
	)
	switch req.Command {
	case CommandReload:
		err = s.handleReload(ctx)
	case CommandGetStatus:
		data, err = s.handleGetStatus(ctx)
	case CommandListWindows:
		data, err = s.desktop.Snapshot(ctx)
	case CommandListLayouts:
		data, err = s.handleListLayouts(ctx)
	case CommandCreateWindow:
		data, err = s.handleCreateWindow(ctx, req.Payload)
	case CommandFocus:
		err = s.withWindow(req.Payload, func(id int) error { return s.desktop.Focus(ctx, id) })
	case CommandClose:
		err = s.withWindow(req.Payload, func(id int) error { return s.desktop.CloseWindow(ctx, id) })
	case CommandDoubleClick:
		err = s.withWindow(req.Payload, func(id int) error { return s.desktop.DoubleClick(ctx, id) })
	case CommandCommand:
		err = s.handleWindowCommand(ctx, req.Payload)
	case CommandTile:
		err = s.handleTile(ctx, req.Payload)
	case CommandPointerDown:
		data, err = s.handlePointerDown(ctx, req.Payload)
	case CommandPointerMove:
		err = s.handlePointerMove(req.Payload)
	case CommandPointerUp:
		err = s.handlePointerUp(ctx, req.Payload)
	case CommandSetViewport:
		data, err = s.handleSetViewport(req.Payload)
	case CommandKey:
		data, err = s.handleKey(ctx, req.Payload)
	case CommandListHotkeys:
		data, err = s.handleListHotkeys(ctx)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return okResponse(data)
}

func (s *Server) handleReload(ctx context.Context) error {
	if s.reload == nil {
		return fmt.Errorf("reload is not supported")
	}
	s.logger.Info("IPC: received RELOAD")
	if err := s.reload(ctx); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return nil
}

func (s *Server) handleGetStatus(ctx context.Context) (StatusData, error) {
	st, err := s.desktop.Status(ctx)
	if err != nil {
		return StatusData{}, err
	}
	return StatusData{
		Status:        st,
		Subscribers:   s.subscriberCount(),
		DaemonRunning: true,
	}, nil
}

func (s *Server) handleListLayouts(ctx context.Context) (LayoutsData, error) {
	names, def, err := s.desktop.Layouts(ctx)
	if err != nil {
		return LayoutsData{}, err
	}
	return LayoutsData{Layouts: names, DefaultLayout: def}, nil
}

func (s *Server) handleCreateWindow(ctx context.Context, payload json.RawMessage) (wm.Info, error) {
	var req CreateWindowPayload
	if len(payload) > 0 {
		if err := decodePayload(payload, &req); err != nil {
			return wm.Info{}, err
		}
	}
	if req.Width < 0 || req.Height < 0 {
		return wm.Info{}, fmt.Errorf("width and height must be >= 0")
	}
	var content any
	if len(req.Content) > 0 {
		content = req.Content
	}
	return s.desktop.CreateWindow(ctx, req.Title, content, req.Width, req.Height)
}

func (s *Server) withWindow(payload json.RawMessage, fn func(id int) error) error {
	var req WindowPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if req.ID <= 0 {
		return fmt.Errorf("id must be > 0")
	}
	return fn(req.ID)
}

func (s *Server) handleWindowCommand(ctx context.Context, payload json.RawMessage) error {
	var req CommandPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.desktop.Execute(ctx, req.Name)
}

func (s *Server) handleKey(ctx context.Context, payload json.RawMessage) (KeyData, error) {
	var req KeyPayload
	if err := decodePayload(payload, &req); err != nil {
		return KeyData{}, err
	}
	if _, err := hotkeys.Normalize(req.Chord); err != nil {
		return KeyData{}, err
	}
	command, err := s.desktop.Key(ctx, req.Chord)
	if err != nil {
		return KeyData{}, err
	}
	return KeyData{Command: command, Handled: command != ""}, nil
}

func (s *Server) handleListHotkeys(ctx context.Context) (HotkeysData, error) {
	bindings, err := s.desktop.Hotkeys(ctx)
	if err != nil {
		return HotkeysData{}, err
	}
	return HotkeysData{Bindings: bindings}, nil
}

func (s *Server) handleTile(ctx context.Context, payload json.RawMessage) error {
	var req desktop.TileRequest
	if len(payload) > 0 {
		if err := decodePayload(payload, &req); err != nil {
			return err
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.desktop.Tile(ctx, req)
}

func (s *Server) handlePointerDown(ctx context.Context, payload json.RawMessage) (PointerDownData, error) {
	var req PointerPayload
	if err := decodePayload(payload, &req); err != nil {
		return PointerDownData{}, err
	}
	var edge gesture.Edge
	if req.Edge != "" {
		var ok bool
		if edge, ok = gesture.ParseEdge(req.Edge); !ok {
			return PointerDownData{}, fmt.Errorf("invalid edge %q", req.Edge)
		}
	}
	started, err := s.desktop.PointerDown(ctx, req.Pointer, req.ID, edge, platform.Point{X: req.X, Y: req.Y})
	return PointerDownData{Started: started}, err
}

func (s *Server) handlePointerMove(payload json.RawMessage) error {
	var req PointerPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	return s.desktop.PointerMove(req.Pointer, platform.Point{X: req.X, Y: req.Y}, req.SuppressSnap)
}

func (s *Server) handlePointerUp(ctx context.Context, payload json.RawMessage) error {
	var req PointerPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	return s.desktop.PointerUp(ctx, req.Pointer)
}

func (s *Server) handleSetViewport(payload json.RawMessage) (ViewportData, error) {
	var req ViewportPayload
	if err := decodePayload(payload, &req); err != nil {
		return ViewportData{}, err
	}
	r := platform.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	if r.Empty() {
		return ViewportData{}, fmt.Errorf("viewport must have a positive size")
	}
	return ViewportData{Changed: s.desktop.SetViewport(r)}, nil
}

// serveSubscription streams snapshots on conn until the client disconnects
// or the server stops. Each subscriber holds at most one undelivered
// snapshot; a newer one replaces it.
func (s *Server) serveSubscription(conn net.Conn, reader *bufio.Reader) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	mailbox := make(chan wm.Snapshot, 1)
	deliver := func(snap wm.Snapshot) {
		for {
			select {
			case mailbox <- snap:
				return
			default:
			}
			select {
			case <-mailbox:
			default:
			}
		}
	}

	subCtx, subCancel := context.WithTimeout(ctx, requestTimeout)
	unsubscribe, err := s.desktop.Subscribe(subCtx, deliver)
	subCancel()
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Failed to subscribe: %v", err)))
		return
	}
	defer unsubscribe()

	s.addSubscriber(id)
	defer s.removeSubscriber(id)
	s.logger.Debug("IPC subscriber attached", "subscriber", id)

	if !s.writeResponse(conn, okResponse(SubscribeData{ID: id})) {
		return
	}

	// Anything the client sends after SUBSCRIBE is ignored; a read error
	// means it went away.
	go func() {
		defer cancel()
		io.Copy(io.Discard, reader)
	}()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("IPC subscriber detached", "subscriber", id)
			return
		case snap := <-mailbox:
			seq++
			event := SnapshotEvent{Subscriber: id, Seq: seq, Snapshot: snap}
			if !s.writeResponse(conn, okResponse(event)) {
				return
			}
		}
	}
}

func (s *Server) addSubscriber(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers[id] = struct{}{}
}

func (s *Server) removeSubscriber(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subscribers, id)
}

func (s *Server) subscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subscribers)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.conns.Wait()
	os.Remove(s.socketPath)
}
