package main

import (
	"os"

	"bikedash/cmd"
)

// main is the entry point of the program.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
