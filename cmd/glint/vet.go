package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glint-ui/glint/internal/errors"
	"github.com/glint-ui/glint/pkg/capture"
)

func vetCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "vet [dir]",
		Short: "Statically check reactive boundaries for capture violations",
		Long: `Scan a source tree for boundary bodies that close over enclosing
bindings. Captured bindings escape dependency tracking: the body reads
them without the engine seeing a subscription, so the boundary never
re-renders when they change.

Run this in CI against built artifacts. At runtime the same analysis
only happens when source files are present next to the binary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			violations, err := capture.NewChecker(dir).Check()
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				success("No capture violations")
				return nil
			}

			for _, v := range violations {
				names := make([]string, len(v.Bindings))
				for i, b := range v.Bindings {
					names[i] = b.String()
				}
				ge := errors.New("G001").
					WithLocation(v.File, v.Line, 0).
					WithSuggestion("pass " + strings.Join(names, ", ") + " through the state store or the body's argument")
				if compact {
					fmt.Fprintln(os.Stderr, ge.FormatCompact())
				} else {
					fmt.Fprintln(os.Stderr, ge.Format())
				}
			}
			return fmt.Errorf("%d capture violation(s)", len(violations))
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "one-line diagnostics")
	return cmd
}
