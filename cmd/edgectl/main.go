// Command edgectl talks to a running edge proxy: it shows the build
// provenance, checks the upstream health endpoints and sends predictions.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
