// Command columnlet-cache builds and inspects columnlet cache regions.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/columnlet-cache/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
