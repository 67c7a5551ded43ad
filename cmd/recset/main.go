package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recset/recset/pkg/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "recset",
		Short: "Export complete record sets from search APIs with unknown pagination",
		Long: `recset retrieves the complete result set from a remote search endpoint
whose pagination contract is unknown or inconsistent, probing multiple
pagination schemes, then fetches full records in fixed-size batches and
writes them as NDJSON or CSV.`,
		Version:       version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
	}

	rootCmd.AddCommand(newFetchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

// Exit codes for scripting support. Each fatal failure kind gets its
// own code so callers can react without parsing messages.
const (
	exitGeneral   = 1
	exitAuth      = 2
	exitTransport = 3
	exitStatus    = 4
	exitFormat    = 5
)

// mapErrorToExitCode maps typed fetch failures to exit codes.
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	var authErr *client.AuthError
	var transportErr *client.TransportError
	var statusErr *client.StatusError
	var formatErr *client.FormatError

	switch {
	case errors.As(err, &authErr):
		return exitAuth
	case errors.As(err, &transportErr):
		return exitTransport
	case errors.As(err, &statusErr):
		return exitStatus
	case errors.As(err, &formatErr):
		return exitFormat
	default:
		return exitGeneral
	}
}
