package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/snaptile/internal/hotkeys"
	"github.com/1broseidon/snaptile/internal/ipc"
)

func runKey(args []string) int {
	fs := flag.NewFlagSet("key", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile key <chord>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Press a key chord such as super+left or Mod1-Tab.")
		fmt.Fprintln(os.Stderr, "Exits 1 when the chord is not bound.")
	}
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "key requires <chord>")
		fs.Usage()
		return 2
	}
	chord := fs.Arg(0)
	if _, err := hotkeys.Normalize(chord); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	data, err := ipc.NewClient().Key(chord)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !data.Handled {
		fmt.Fprintf(os.Stderr, "%s is not bound\n", chord)
		return 1
	}
	fmt.Println(data.Command)
	return 0
}

func runHotkeys(args []string) int {
	fs := flag.NewFlagSet("hotkeys", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: snaptile hotkeys [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the daemon's key bindings.")
	}
	asJSON := fs.Bool("json", false, "Print bindings as JSON")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}

	data, err := ipc.NewClient().ListHotkeys()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data.Bindings)
	}
	for _, b := range data.Bindings {
		fmt.Printf("%-16s %s\n", b.Chord, b.Command)
	}
	return 0
}
