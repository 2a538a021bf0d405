package cmd

import (
	"fmt"
	"os"

	"github.com/kapsel-run/kapsel/pkg/nsinit"
	"github.com/kapsel-run/kapsel/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewChildCommand is the re-exec entry point run's clone step launches
// into the fresh namespaces. It is never invoked directly by a user:
// run execs /proc/self/exe __child__ with CLONE_NEWPID|NEWUTS|NEWNS|NEWNET
// set on SysProcAttr, which gives Go the equivalent of cloning into a
// child without needing to fork the runtime itself.
func NewChildCommand() *cobra.Command {
	command := &cobra.Command{
		Use:    "__child__",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := os.Getenv(orchestrator.ChildEnvVar)
			if payload == "" {
				return fmt.Errorf("missing %s in environment", orchestrator.ChildEnvVar)
			}
			container, err := orchestrator.DecodeContainer(payload)
			if err != nil {
				return fmt.Errorf("decode container: %w", err)
			}

			code := nsinit.Run(nsinit.Config{Container: container})
			os.Exit(code)
			return nil
		},
	}
	return command
}
