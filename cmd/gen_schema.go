package cmd

import (
	"fmt"

	"github.com/kapsel-run/kapsel/pkg/profile"
	"github.com/spf13/cobra"
)

// NewGenSchemaCommand regenerates profile.schema.json. Hidden: it is a
// maintenance command, not part of the day-to-day CLI surface.
func NewGenSchemaCommand() *cobra.Command {
	var outPath string

	command := &cobra.Command{
		Use:    "gen-schema",
		Short:  "Regenerate the resource profile JSON Schema",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profile.WriteSchema(outPath); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			fmt.Printf("wrote %s\n", outPath)
			return nil
		},
	}

	command.Flags().StringVar(&outPath, "out", "profile.schema.json", "output schema path")
	return command
}
