package main

import (
	"log/slog"
	"os"

	"sqlcriteria/internal/cli"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := cli.NewRootCommand(cli.BuildInfo{Version: Version, Commit: Commit}).Execute(); err != nil {
		slog.Error("criteria-demo failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
