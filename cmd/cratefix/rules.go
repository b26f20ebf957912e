package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/cratefix/internal/desugar"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the desugar rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nameStyle := lipgloss.NewStyle().Width(22)
			exampleStyle := lipgloss.NewStyle().Width(22)

			out := cmd.OutOrStdout()
			for i, r := range desugar.Rules() {
				fmt.Fprintf(out, "%2d. %s%s-> %s\n", i+1,
					nameStyle.Render(r.Name),
					exampleStyle.Render(r.Example),
					desugar.Desugar(r.Example))
			}
			return nil
		},
	}
}
