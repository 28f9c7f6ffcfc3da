// Command snuggle is the command line for the Snuggle growth and engagement core.
package main

import (
	"os"

	"github.com/snuggle-app/snuggle-core/cmd/snuggle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
