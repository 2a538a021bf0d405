package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kapsel-run/kapsel/pkg/history"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"
)

// NewAuditCommand cross-checks the history ledger against on-disk
// resource remnants (cgroup dirs, netns entries, container dirs) and
// reports orphans. Hidden: a diagnostic verb, not part of normal use.
func NewAuditCommand() *cobra.Command {
	var rootDir string

	command := &cobra.Command{
		Use:    "audit",
		Short:  "Cross-check the history ledger against on-disk remnants",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := history.Open(rootDir)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer ledger.Close()

			leaked, err := ledger.Leaked()
			if err != nil {
				return fmt.Errorf("query leaked runs: %w", err)
			}

			if len(leaked) == 0 {
				fmt.Println("no leaked runs recorded")
			}
			for _, run := range leaked {
				remnants := remnantsFor(rootDir, run.ContainerId)
				alive := run.ExitCode == 0 && processAlive(run.ContainerId)
				fmt.Printf("run %s (distro=%s): remnants=%v still-running=%v\n",
					run.ContainerId, run.Distro, remnants, alive)
			}

			all, err := ledger.All()
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			return scanOrphans(rootDir, all)
		},
	}

	command.Flags().StringVarP(&rootDir, "root-dir", "r", defaultRootDir(), "engine state directory")
	return command
}

func remnantsFor(rootDir, id string) []string {
	var found []string
	candidates := map[string]string{
		"container-dir": filepath.Join(rootDir, "containers", id),
		"pids-cgroup":   filepath.Join("/sys/fs/cgroup/pids", id),
		"memory-cgroup": filepath.Join("/sys/fs/cgroup/memory", id),
		"cpu-cgroup":    filepath.Join("/sys/fs/cgroup/cpu", id),
		"netns":         filepath.Join("/var/run/netns", id),
	}
	for label, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			found = append(found, label)
		}
	}
	return found
}

func processAlive(id string) bool {
	pids, err := process.Pids()
	if err != nil {
		return false
	}
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		name, err := p.Name()
		if err == nil && name == id {
			return true
		}
	}
	return false
}

// scanOrphans finds on-disk container directories with no matching
// ledger row at all: remnants that pre-date the ledger or survived a
// crash before any Start() call landed.
func scanOrphans(rootDir string, runs []history.Run) error {
	known := make(map[string]bool, len(runs))
	for _, r := range runs {
		known[r.ContainerId] = true
	}

	entries, err := os.ReadDir(filepath.Join(rootDir, "containers"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan containers dir: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() || known[e.Name()] {
			continue
		}
		fmt.Printf("orphan container directory with no ledger row: %s\n", e.Name())
	}
	return nil
}
