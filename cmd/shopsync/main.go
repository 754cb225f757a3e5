// Package main provides the entry point for the shopsync CLI tool.
package main

import "github.com/suprameds/shopsync/cmd/shopsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
