package main

import (
	"os"

	"github.com/plantdash/plantdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
