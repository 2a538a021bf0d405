package cmd

import (
	"fmt"

	"github.com/kapsel-run/kapsel/pkg/profile"
	"github.com/spf13/cobra"
)

// NewValidateCommand checks a candidate resource-limit profile file
// against the generated JSON Schema.
func NewValidateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "validate <profile-file>",
		Short: "Validate a resource limits profile against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			violations, err := profile.Validate(args[0])
			if err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}
			if len(violations) == 0 {
				fmt.Printf("%s is valid\n", args[0])
				return nil
			}
			fmt.Printf("%s has %d violation(s):\n", args[0], len(violations))
			for _, v := range violations {
				fmt.Printf("  - %s\n", v)
			}
			return fmt.Errorf("%s failed validation", args[0])
		},
	}
	return command
}
