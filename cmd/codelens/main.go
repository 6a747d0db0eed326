package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/codelens/codelens/internal/cmd"
	"github.com/codelens/codelens/internal/server/handlers"
)

// Build metadata, overridden at release time:
//
//	go build -ldflags "-X main.version=0.3.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "command failed", err)
	}
}
