package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/CPatchane/cozy-konnector-libs/cmd/billlinker/cmd"
	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if linkerErr, ok := errors.AsLinkerError(err); ok {
			os.Exit(linkerErr.GetExitCode())
		}
		os.Exit(1)
	}
}
