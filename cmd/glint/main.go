package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glint-ui/glint/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glint",
		Short: "Tooling for the Glint reactive UI engine",
		Long: `Glint is a reactive tracking and invalidation engine for
declarative UI in Go.

The CLI provides:

  • A blob service for dataset development (glint serve)
  • Static capture checking of reactive boundaries (glint vet)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		vetCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
