// Command foldertalk serves chat over the files of a shared Google Drive folder.
package main

import (
	"os"

	"github.com/custodia-labs/foldertalk/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
