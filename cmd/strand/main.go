// Package main is the single-binary entrypoint for strand.
package main

import "github.com/stranddb/strand/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
