// Command streamtrack is the local playback engine's CLI entrypoint: it
// wires together the catalogue client, the Store Gateway, the Playback
// Engine, and whichever front-ends are enabled, then hands control to
// them until the process is asked to exit.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
