package main

import (
	"os"

	"github.com/Makoshaa/kia/cmd/leadboard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
