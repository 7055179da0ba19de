package main

import (
	"os"

	"github.com/zombor/billlens/internal/commands"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
