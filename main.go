package main

import (
	"os"

	"github.com/sqlscout/sqlscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
