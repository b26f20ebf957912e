package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/cratefix/internal/desugar"
)

func newDesugarCmd() *cobra.Command {
	var (
		strict  bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "desugar <requirement>...",
		Short: "Print the semver range for cargo requirements",
		Example: `  cratefix desugar "^1.2.3, < 1.5.0"
  cratefix desugar --explain "1.2.x" "> 0.3"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := desugar.New(
				desugar.WithStrict(strict),
				desugar.WithLogger(loggerFromContext(cmd.Context())),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, req := range args {
				rng, err := d.Desugar(req)
				if err != nil {
					return err
				}
				if !explain {
					fmt.Fprintln(out, rng)
					continue
				}
				rule := "identity"
				if r, ok := desugar.Match(req); ok {
					rule = r.Name
				}
				fmt.Fprintf(out, "%s\t%q\t%q\n", rule, req, rng)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on requirements no rule handles and semver cannot parse")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the matching rule next to each result")
	return cmd
}
