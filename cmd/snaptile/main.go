package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/1broseidon/snaptile/internal/daemon"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(command string, args []string) int {
	switch command {
	case "daemon":
		return runDaemon(args)
	case "status":
		return runStatus(args)
	case "windows":
		return runWindows(args)
	case "layouts":
		return runLayouts(args)
	case "create":
		return runCreate(args)
	case "focus":
		return runWindowID("focus", args, func(c *ipc.Client, id int) error { return c.Focus(id) })
	case "close":
		return runWindowID("close", args, func(c *ipc.Client, id int) error { return c.Close(id) })
	case "toggle":
		return runWindowID("toggle", args, func(c *ipc.Client, id int) error { return c.DoubleClick(id) })
	case "command":
		return runCommand(args)
	case "tile":
		return runTile(args)
	case "key":
		return runKey(args)
	case "hotkeys":
		return runHotkeys(args)
	case "drag":
		return runDrag(args)
	case "viewport":
		return runViewport(args)
	case "watch":
		return runWatch(args)
	case "reload":
		return runReload(args)
	case "config":
		return runConfig(args)
	case "state":
		return runState(args)
	case "tui":
		return runTUI(args)
	case "mcp":
		return runMCP(args)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printMainUsage(os.Stderr)
		return 2
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: snaptile <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the snaptile daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  windows             List windows")
	fmt.Fprintln(w, "  create              Open a window")
	fmt.Fprintln(w, "  focus <id>          Raise a window")
	fmt.Fprintln(w, "  close <id>          Close a window")
	fmt.Fprintln(w, "  toggle <id>         Toggle maximize (title bar double-click)")
	fmt.Fprintln(w, "  command <name>      Run a window command")
	fmt.Fprintln(w, "  drag                Drag or resize a window with a simulated pointer")
	fmt.Fprintln(w, "  key <chord>         Press a bound key chord")
	fmt.Fprintln(w, "  hotkeys             List key bindings")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  layouts             List tiling layouts")
	fmt.Fprintln(w, "  tile                Tile windows")
	fmt.Fprintln(w, "  viewport            Report the host viewport size")
	fmt.Fprintln(w, "  watch               Stream registry snapshots")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config init         Write a config file interactively")
	fmt.Fprintln(w, "  state list          List saved geometry and session documents")
	fmt.Fprintln(w, "  state clear         Forget saved geometry and session")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive task manager")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'snaptile <command> --help' for command-specific options.")
}

// parseFlags parses args into fs. It returns -1 to continue or the exit code
// to stop with.
func parseFlags(fs *flag.FlagSet, args []string) int {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile daemon [--path PATH] [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the window manager in the foreground. SIGHUP reloads the config.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/snaptile/config.yaml)")
	socket := fs.String("socket", "", "IPC socket path (default: $SNAPTILE_SOCKET or $XDG_RUNTIME_DIR/snaptile.sock)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	err := daemon.Run(context.Background(), daemon.Options{
		ConfigPath: *path,
		SocketPath: *socket,
		Signals:    true,
		Ready: func(socketPath string) {
			log.Printf("snaptile daemon listening on %s", socketPath)
		},
	})
	if err != nil {
		log.Printf("daemon: %v", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("uptime:         %s\n", status.Uptime)
	fmt.Printf("windows:        %d\n", status.Windows)
	fmt.Printf("active_id:      %d\n", status.ActiveID)
	fmt.Printf("bounds:         %d,%d %dx%d\n", status.Bounds.X, status.Bounds.Y, status.Bounds.Width, status.Bounds.Height)
	fmt.Printf("bounds_source:  %s\n", status.BoundsSource)
	fmt.Printf("fallback:       %v\n", status.UsingFallback)
	fmt.Printf("gestures:       %d\n", status.Gestures)
	fmt.Printf("default_layout: %s\n", status.DefaultLayout)
	fmt.Printf("persistence:    %v\n", status.Persistence)
	fmt.Printf("subscribers:    %d\n", status.Subscribers)
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Re-read the config file and apply it to the running daemon.")
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile tui [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive task manager for a running daemon.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓     Navigate")
		fmt.Fprintln(os.Stderr, "  Enter        Focus window / tile with layout")
		fmt.Fprintln(os.Stderr, "  x            Close window")
		fmt.Fprintln(os.Stderr, "  h/l/t/b      Snap left/right/top/bottom")
		fmt.Fprintln(os.Stderr, "  m, r         Maximize, restore")
		fmt.Fprintln(os.Stderr, "  n, M         Cycle next, minimize all")
		fmt.Fprintln(os.Stderr, "  e, Ctrl+S    Edit settings, save config")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C    Quit")
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/snaptile/config.yaml)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	if err := tui.Run(*path, ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
