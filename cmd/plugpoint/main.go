// Package main is the single-binary entrypoint for PlugPoint.
package main

import "github.com/plugpoint/plugpoint/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
