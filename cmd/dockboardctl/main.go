package main

import (
	"os"

	"github.com/dockboard/dockboard/cmd/dockboardctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
