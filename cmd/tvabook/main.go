package main

import (
	"os"

	"github.com/tvabook-dev/tvabook/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
