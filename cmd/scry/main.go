// Scry is a spaced-repetition scheduling service.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // analytics.timezone must resolve without system zoneinfo

	"github.com/phrazzld/scry-srs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
