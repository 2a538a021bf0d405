package cmd

import (
	"fmt"

	"github.com/kapsel-run/kapsel/pkg/config"
	"github.com/kapsel-run/kapsel/pkg/history"
	"github.com/kapsel-run/kapsel/pkg/kapsellog"
	"github.com/kapsel-run/kapsel/pkg/orchestrator"
	"github.com/kapsel-run/kapsel/pkg/profile"
	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/spf13/cobra"
)

// NewRunCommand builds a container, runs a command inside it, and tears
// it down again.
func NewRunCommand() *cobra.Command {
	var (
		distro        string
		containerId   string
		rootDir       string
		buildImage    bool
		processNumber string
		cpuShare      int
		memory        string
		memorySwap    string
		loggingToFile bool
		profilePath   string
	)

	command := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command inside a fresh container",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.Load(rootDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if profilePath != "" {
				limits, err := profile.Load(profilePath)
				if err != nil {
					return fmt.Errorf("load profile %s: %w", profilePath, err)
				}
				defaults.Limits = limits
			}

			limits := defaults.Limits
			if processNumber != "" {
				limits.ProcessNumber = processNumber
			}
			if cpuShare != 0 {
				limits.CPUShare = cpuShare
			}
			if memory != "" {
				limits.Memory = memory
			}
			if memorySwap != "" {
				limits.SwapMemory = memorySwap
			}

			if distro == "" {
				distro = string(defaults.Distro)
			}

			opts := types.RunOptions{
				Distro:        types.Distro(distro),
				ContainerId:   containerId,
				RootDir:       rootDir,
				BuildImage:    buildImage,
				Limits:        limits,
				LoggingToFile: loggingToFile,
				Command:       args,
			}

			o := orchestrator.New(opts, defaults)

			if loggingToFile {
				logPath := rootDir + "/logs/" + o.Container.Id + ".log"
				if err := kapsellog.Configure(logPath, true); err != nil {
					return fmt.Errorf("configure logging: %w", err)
				}
			}

			ledger, err := history.Open(rootDir)
			if err == nil {
				o.AttachLedger(ledger)
				defer ledger.Close()
			} else {
				kapsellog.Warnf("history ledger unavailable: %v", err)
			}

			sync, err := o.Setup()
			if err != nil {
				o.Cleanup()
				return fmt.Errorf("setup: %w", err)
			}

			code, err := o.Run(sync)
			sync.Close()
			o.Cleanup()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			if code != 0 {
				return fmt.Errorf("container exited with status %d", code)
			}
			return nil
		},
	}

	flags := command.Flags()
	flags.StringVarP(&distro, "rootfs", "t", "", "base distribution (ubuntu, alpine, centos, arch; default from kapsel.json, else ubuntu)")
	flags.StringVarP(&containerId, "container-id", "i", "", "fixed container id (default: random)")
	flags.StringVarP(&rootDir, "root-dir", "r", defaultRootDir(), "engine state directory")
	flags.BoolVarP(&buildImage, "build", "b", false, "extract directly without an overlay and archive the final rootfs on exit")
	flags.StringVarP(&processNumber, "process-number", "p", "", "pids.max override")
	flags.IntVarP(&cpuShare, "cpu-share", "c", 0, "cpu.shares override")
	flags.StringVarP(&memory, "memory", "m", "", "memory.limit_in_bytes override")
	flags.StringVarP(&memorySwap, "memory-swap", "s", "", "memory.memsw.limit_in_bytes override")
	flags.BoolVarP(&loggingToFile, "logging", "l", false, "also write logs to <root>/logs/<id>.log")
	flags.StringVar(&profilePath, "profile", "", "load resource limits from a named profile file instead of kapsel.json")

	return command
}
