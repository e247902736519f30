package main

import (
	"os"

	"github.com/ghostmonk/storyfeed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
