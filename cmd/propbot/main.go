package main

import (
	"os"

	"github.com/rustyeddy/propbot/cmd/propbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
