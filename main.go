package main

import (
	"os"

	"github.com/mcpjungle/mcpbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
