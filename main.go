package main

import (
	"os"

	"github.com/gatewatch/botctl/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
