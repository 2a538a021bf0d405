package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewListCommand enumerates saved images under <root>/images/ by
// directory scan, the same way the image store itself treats listing as
// plain filesystem enumeration rather than a database query.
func NewListCommand() *cobra.Command {
	var rootDir string

	command := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved images",
		RunE: func(cmd *cobra.Command, args []string) error {
			imagesDir := filepath.Join(rootDir, "images")
			entries, err := os.ReadDir(imagesDir)
			if os.IsNotExist(err) {
				fmt.Println("no images saved yet")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read images dir: %w", err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "SIZE", "MODIFIED"})

			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar.gz") {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				id := strings.TrimSuffix(e.Name(), ".tar.gz")
				table.Append([]string{
					id,
					fmt.Sprintf("%d bytes", info.Size()),
					info.ModTime().Format("2006-01-02 15:04:05"),
				})
			}

			table.Render()
			return nil
		},
	}

	command.Flags().StringVarP(&rootDir, "root-dir", "r", defaultRootDir(), "engine state directory")
	return command
}
