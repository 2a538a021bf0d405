package cmd

import (
	"fmt"

	"github.com/kapsel-run/kapsel/pkg/config"
	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/spf13/cobra"
)

// NewConfigureCommand writes the default resource-limit profile and
// bridge settings to <root>/kapsel.json.
func NewConfigureCommand() *cobra.Command {
	var (
		rootDir       string
		distro        string
		processNumber string
		cpuShare      int
		memory        string
		memorySwap    string
		bridgeName    string
		bridgeIP      string
		bridgePrefix  int
		nameserver    string
	)

	command := &cobra.Command{
		Use:   "configure",
		Short: "Write the default resource profile and bridge settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := config.Load(rootDir)
			if err != nil {
				return fmt.Errorf("load existing config: %w", err)
			}

			if distro != "" {
				d.Distro = types.Distro(distro)
			}
			if processNumber != "" {
				d.Limits.ProcessNumber = processNumber
			}
			if cpuShare != 0 {
				d.Limits.CPUShare = cpuShare
			}
			if memory != "" {
				d.Limits.Memory = memory
			}
			if memorySwap != "" {
				d.Limits.SwapMemory = memorySwap
			}
			if bridgeName != "" {
				d.Bridge.Name = bridgeName
			}
			if bridgeIP != "" {
				d.Bridge.IP = bridgeIP
			}
			if bridgePrefix != 0 {
				d.Bridge.Prefix = bridgePrefix
			}
			if nameserver != "" {
				d.Bridge.Nameserver = nameserver
			}

			if err := config.Save(rootDir, d); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("wrote defaults to %s/kapsel.json\n", rootDir)
			return nil
		},
	}

	flags := command.Flags()
	flags.StringVarP(&rootDir, "root-dir", "r", defaultRootDir(), "engine state directory")
	flags.StringVarP(&distro, "rootfs", "t", "", "default base distribution")
	flags.StringVarP(&processNumber, "process-number", "p", "", "default pids.max")
	flags.IntVarP(&cpuShare, "cpu-share", "c", 0, "default cpu.shares")
	flags.StringVarP(&memory, "memory", "m", "", "default memory.limit_in_bytes")
	flags.StringVarP(&memorySwap, "memory-swap", "s", "", "default memory.memsw.limit_in_bytes")
	flags.StringVar(&bridgeName, "bridge-name", "", "host bridge interface name")
	flags.StringVar(&bridgeIP, "bridge-ip", "", "host bridge IPv4 address")
	flags.IntVar(&bridgePrefix, "bridge-prefix", 0, "host bridge subnet prefix length")
	flags.StringVar(&nameserver, "nameserver", "", "nameserver written into every container's resolv.conf")

	return command
}
