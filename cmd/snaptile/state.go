package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/snaptile/internal/persist"
)

func printStateUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  snaptile state list [--path PATH] [--dir DIR]")
	fmt.Fprintln(w, "  snaptile state clear [--path PATH] [--dir DIR] [key...]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "clear without keys forgets the saved geometry and session.")
}

// stateStore parses flags and opens the file store the daemon persists to.
// Keys default to the configured geometry and session keys.
func stateStore(fs *flag.FlagSet, args []string) (*persist.FileStore, []string, int) {
	path := fs.String("path", "", pathUsage)
	dir := fs.String("dir", "", "State directory (default: persistence.dir or $XDG_STATE_HOME/snaptile)")
	if rc := parseFlags(fs, args); rc >= 0 {
		return nil, nil, rc
	}
	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, 1
	}
	p := res.Config.Persistence
	if *dir == "" {
		*dir = p.Dir
	}
	keys := fs.Args()
	if len(keys) == 0 {
		keys = []string{p.GeometryKey, p.SessionKey}
	}
	return persist.NewFileStore(*dir), keys, -1
}

func runState(args []string) int {
	if len(args) == 0 {
		printStateUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		printStateUsage(os.Stdout)
		return 0

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		store, _, rc := stateStore(fs, args[1:])
		if rc >= 0 {
			return rc
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "list takes no arguments")
			return 2
		}
		keys, err := store.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("dir: %s\n", store.Dir())
		if len(keys) == 0 {
			fmt.Println("no saved state")
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return 0

	case "clear":
		fs := flag.NewFlagSet("clear", flag.ContinueOnError)
		store, keys, rc := stateStore(fs, args[1:])
		if rc >= 0 {
			return rc
		}
		status := 0
		for _, key := range keys {
			err := store.Delete(key)
			switch {
			case err == nil:
				fmt.Printf("removed %s\n", key)
			case errors.Is(err, persist.ErrNotFound):
			default:
				fmt.Fprintln(os.Stderr, err)
				status = 1
			}
		}
		return status

	default:
		fmt.Fprintf(os.Stderr, "Unknown state command: %s\n\n", args[0])
		printStateUsage(os.Stderr)
		return 2
	}
}
