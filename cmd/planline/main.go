package main

import (
	"os"

	"github.com/planline/planline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
