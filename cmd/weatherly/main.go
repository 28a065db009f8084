// Package main is the entry point for Weatherly.
//
// The main package stays minimal. It:
//  1. Reads configuration (flags, env, .env, config file)
//  2. Creates the logger
//  3. Builds the server and runs it until Ctrl+C
//
// All actual logic lives in internal/.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/weatherly/cmd/weatherly/root"
)

func main() {
	if err := root.NewCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
