package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err, currentFormat())
		os.Exit(1)
	}
}
