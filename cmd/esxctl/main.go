package main

import (
	"os"

	"github.com/esxctl/esxctl/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
