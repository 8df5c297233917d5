package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version and environment information.
func runVersion() {
	fmt.Printf("chatd %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	// Presence only, never the key itself.
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		fmt.Println("ANTHROPIC_API_KEY: configured")
	} else {
		fmt.Println("ANTHROPIC_API_KEY: not set")
	}
}
