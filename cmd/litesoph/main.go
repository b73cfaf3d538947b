package main

import (
	"os"

	"github.com/ash399/litesoph/cmd/litesoph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
