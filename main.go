package main

import (
	"fmt"
	"os"

	"github.com/kapsel-run/kapsel/cmd"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "kapsel",
		Short: "a minimal Linux container runtime",
		Long:  `kapsel provisions a filesystem, namespaces, cgroups, and a veth link for a single command and tears it all down again`,
	}

	rootCmd.AddCommand(cmd.NewRunCommand())
	rootCmd.AddCommand(cmd.NewListCommand())
	rootCmd.AddCommand(cmd.NewDeleteCommand())
	rootCmd.AddCommand(cmd.NewConfigureCommand())
	rootCmd.AddCommand(cmd.NewValidateCommand())
	rootCmd.AddCommand(cmd.NewGenSchemaCommand())
	rootCmd.AddCommand(cmd.NewAuditCommand())
	rootCmd.AddCommand(cmd.NewChildCommand())

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
