package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewDeleteCommand removes one saved image tarball by id.
func NewDeleteCommand() *cobra.Command {
	var rootDir string

	command := &cobra.Command{
		Use:     "delete <image-id>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a saved image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(rootDir, "images", args[0]+".tar.gz")
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("no image named %q", args[0])
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("delete %s: %w", path, err)
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}

	command.Flags().StringVarP(&rootDir, "root-dir", "r", defaultRootDir(), "engine state directory")
	return command
}
