package main

import (
	"os"

	"github.com/magnolia-hms/finance/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
