package main

import (
	"os"

	"github.com/abramin/voyage/cmd/voyage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
