package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/mcp"
)

const mcpUsage = `Usage: snaptile mcp serve [--socket PATH]

Serve the Model Context Protocol on stdin/stdout. Every tool call is
forwarded to a running 'snaptile daemon'.
`

func runMCP(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, mcpUsage)
		return 2
	}
	switch args[0] {
	case "serve":
		return runMCPServe(args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, mcpUsage)
		return 0
	}
	fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n%s", args[0], mcpUsage)
	return 2
}

func runMCPServe(args []string) int {
	fs := flag.NewFlagSet("mcp serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, mcpUsage+"\nFlags:\n")
		fs.PrintDefaults()
	}
	socket := fs.String("socket", "", "daemon socket path")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "mcp serve takes no arguments")
		return 2
	}

	// stdout belongs to the protocol.
	log.SetOutput(os.Stderr)

	client := ipc.NewClient()
	if *socket != "" {
		client = ipc.NewClientWithSocket(*socket)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := mcp.NewServer(client).Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("mcp server: %v", err)
		return 1
	}
	return 0
}
