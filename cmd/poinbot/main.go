package main

import (
	"os"

	"github.com/poinbot/poinbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
