package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/cratefix/internal/buildinfo"
	"github.com/frederic-klein/cratefix/internal/desugar"
)

// Exit statuses.
const (
	exitOK             = 0
	exitFailure        = 1
	exitMalformedRange = 2
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error to the process exit status, printing a
// diagnostic for desugar sanity failures.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var rangeErr *desugar.RangeError
	if errors.As(err, &rangeErr) && errors.Is(err, desugar.ErrMalformedRange) {
		fmt.Fprintf(stderr, "malformed range: requirement %q desugared to %q\n", rangeErr.Req, rangeErr.Result)
		return exitMalformedRange
	}
	return exitFailure
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)
	opts := &buildOptions{}

	root := &cobra.Command{
		Use:   "cratefix",
		Short: "Convert a crates.io index into resolver test fixtures",
		Long: "cratefix reads a crates.io-style index, desugars every dependency requirement into an " +
			"npm-style semver range and writes a package -> version -> dependency registry.",
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, configPath, opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (.yaml, .yml or .toml)")
	addBuildFlags(root, opts)

	root.AddCommand(newBuildCmd(&configPath))
	root.AddCommand(newDesugarCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newRulesCmd())

	return root
}
