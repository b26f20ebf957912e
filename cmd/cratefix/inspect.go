package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/cratefix/internal/emitter"
)

func newInspectCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "inspect <registry-file>",
		Short: "Decode a registry file and print it in another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path := args[0]

			format := from
			if format == "" {
				format = formatFromExt(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening registry: %w", err)
			}
			defer f.Close()

			reg, err := emitter.Decode(f, format)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			stats := reg.Stats()
			logger.Info("Decoded registry", "packages", stats.Packages, "versions", stats.Versions, "dependencies", stats.Dependencies)

			var buf bytes.Buffer
			em, err := emitter.NewEmitter(&buf, to)
			if err != nil {
				return err
			}
			if err := em.Emit(reg); err != nil {
				return fmt.Errorf("encoding registry: %w", err)
			}
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "input format (default: from extension, msgpack otherwise)")
	cmd.Flags().StringVar(&to, "to", emitter.FormatJSON, "output format")
	return cmd
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return emitter.FormatJSON
	case ".yaml", ".yml":
		return emitter.FormatYAML
	default:
		return emitter.FormatMsgpack
	}
}
