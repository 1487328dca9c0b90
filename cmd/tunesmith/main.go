// Command tunesmith is the ops CLI for the enrichment daemon. Every command
// talks to the daemon's HTTP API; the daemon itself is run by tunesmithd.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
