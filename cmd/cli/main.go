// Package main is the entry point for the bqflow CLI binary.
package main

import (
	"os"

	"bqflow/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
