package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/gesture"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/wm"
)

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatWindow(w wm.Info, activeID int) string {
	marker := " "
	if w.ID == activeID {
		marker = "*"
	}
	line := fmt.Sprintf("%s %3d  z=%-3d %5d,%-5d %5dx%-5d %s", marker, w.ID, w.Z, w.X, w.Y, w.W, w.H, w.Title)
	var tags []string
	if w.Snapped != "" {
		tags = append(tags, string(w.Snapped))
	}
	if w.Minimized {
		tags = append(tags, "minimized")
	}
	if len(tags) > 0 {
		line += " [" + strings.Join(tags, ",") + "]"
	}
	return line
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List windows top of the stack first. '*' marks the active window.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output the full snapshot as JSON")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	snapshot, err := ipc.NewClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(snapshot)
	}
	fmt.Printf("bounds: %d,%d %dx%d\n", snapshot.Bounds.X, snapshot.Bounds.Y, snapshot.Bounds.Width, snapshot.Bounds.Height)
	for i := len(snapshot.Windows) - 1; i >= 0; i-- {
		fmt.Println(formatWindow(snapshot.Windows[i], snapshot.ActiveID))
	}
	return 0
}

func runLayouts(args []string) int {
	fs := flag.NewFlagSet("layouts", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile layouts")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the daemon's tiling layouts.")
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	data, err := ipc.NewClient().ListLayouts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("default_layout: %s\n", data.DefaultLayout)
	for _, name := range data.Layouts {
		fmt.Printf("- %s\n", name)
	}
	return 0
}

func runCreate(args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile create [--width N] [--height N] <title>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window. Geometry is restored from the last window with the same title.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	width := fs.Int("width", 0, "Initial width (default: configured default)")
	height := fs.Int("height", 0, "Initial height (default: configured default)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "create requires <title>")
		fs.Usage()
		return 2
	}
	if *width < 0 || *height < 0 {
		fmt.Fprintln(os.Stderr, "--width and --height must be >= 0")
		return 2
	}

	info, err := ipc.NewClient().CreateWindow(strings.Join(fs.Args(), " "), *width, *height)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(info.ID)
	return 0
}

// runWindowID handles commands of the form `<name> <id>`.
func runWindowID(name string, args []string, fn func(*ipc.Client, int) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: snaptile %s <id>\n", name)
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s requires <id>\n", name)
		fs.Usage()
		return 2
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}
	if err := fn(ipc.NewClient(), id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("command", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile command <name>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		for _, name := range wm.Commands() {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "command requires <name>")
		fs.Usage()
		return 2
	}
	if err := ipc.NewClient().Command(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// parseGrid parses "RxC".
func parseGrid(s string) (rows, cols int, err error) {
	r, c, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("grid must look like 2x3, got %q", s)
	}
	rows, err = strconv.Atoi(r)
	if err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid grid rows %q", r)
	}
	cols, err = strconv.Atoi(c)
	if err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid grid cols %q", c)
	}
	return rows, cols, nil
}

func runTile(args []string) int {
	fs := flag.NewFlagSet("tile", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile tile [--columns N | --grid RxC] [layout]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Tile windows. With no arguments the default layout is applied.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	columns := fs.Int("columns", 0, "Tile the top N windows into equal columns")
	grid := fs.String("grid", "", "Tile the top windows into a rows x cols grid, e.g. 2x2")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "tile takes at most one layout")
		fs.Usage()
		return 2
	}

	req := desktop.TileRequest{Layout: fs.Arg(0), Columns: *columns}
	if *grid != "" {
		rows, cols, err := parseGrid(*grid)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		req.Rows, req.Cols = rows, cols
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().Tile(req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// parsePoint parses "X,Y".
func parsePoint(s string) (x, y int, err error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("point must look like 120,40, got %q", s)
	}
	if x, err = strconv.Atoi(strings.TrimSpace(xs)); err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", xs)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(ys)); err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", ys)
	}
	return x, y, nil
}

func runDrag(args []string) int {
	fs := flag.NewFlagSet("drag", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile drag [--edge E] [--no-snap] <id> <from X,Y> <to X,Y>...")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Press on a window, move through each point and release.")
		fmt.Fprintln(os.Stderr, "Without --edge the title bar is dragged; with it the window is resized")
		fmt.Fprintln(os.Stderr, "from that edge (n, s, e, w, ne, nw, se, sw).")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	edge := fs.String("edge", "", "Resize edge instead of dragging")
	noSnap := fs.Bool("no-snap", false, "Suppress snapping, as if the modifier key were held")
	pointer := fs.Int("pointer", 1, "Pointer id")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "drag requires <id> <from> <to>")
		fs.Usage()
		return 2
	}
	if *edge != "" {
		if _, ok := gesture.ParseEdge(*edge); !ok {
			fmt.Fprintf(os.Stderr, "invalid edge %q\n", *edge)
			return 2
		}
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}
	var points [][2]int
	for _, arg := range fs.Args()[1:] {
		x, y, err := parsePoint(arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		points = append(points, [2]int{x, y})
	}

	client := ipc.NewClient()
	started, err := client.PointerDown(ipc.PointerPayload{
		Pointer: *pointer, ID: id, Edge: *edge, X: points[0][0], Y: points[0][1],
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !started {
		fmt.Fprintf(os.Stderr, "no gesture started on window %d\n", id)
		return 1
	}
	for _, p := range points[1:] {
		err := client.PointerMove(ipc.PointerPayload{Pointer: *pointer, X: p[0], Y: p[1], SuppressSnap: *noSnap})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			_ = client.PointerUp(*pointer)
			return 1
		}
	}
	if err := client.PointerUp(*pointer); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runViewport(args []string) int {
	fs := flag.NewFlagSet("viewport", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile viewport [--x N] [--y N] <width> <height>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Report the host viewport. Windows are re-clamped to the new bounds.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	x := fs.Int("x", 0, "Viewport origin x")
	y := fs.Int("y", 0, "Viewport origin y")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "viewport requires <width> <height>")
		fs.Usage()
		return 2
	}
	w, errW := strconv.Atoi(fs.Arg(0))
	h, errH := strconv.Atoi(fs.Arg(1))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		fmt.Fprintln(os.Stderr, "width and height must be positive integers")
		return 2
	}

	changed, err := ipc.NewClient().SetViewport(ipc.ViewportPayload{X: *x, Y: *y, Width: w, Height: h})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("changed: %v\n", changed)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile watch [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Print a line per registry change until interrupted.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Print each snapshot event as a JSON line")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	err := ipc.NewClient().Subscribe(ctx, func(ev ipc.SnapshotEvent) {
		if *jsonOut {
			_ = enc.Encode(ev)
			return
		}
		fmt.Printf("#%d windows=%d active=%d bounds=%dx%d\n",
			ev.Seq, len(ev.Snapshot.Windows), ev.Snapshot.ActiveID,
			ev.Snapshot.Bounds.Width, ev.Snapshot.Bounds.Height)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
