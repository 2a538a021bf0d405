// Package netfabric manages the host bridge, per-container IPv4
// allocation, and the veth/netns plumbing that connects a container's
// fresh network namespace to the host, driving ip/brctl/iptables through
// exec.Command the same way the rest of the engine shells out to
// external tools rather than reimplementing netlink in-process.
package netfabric

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/kapsel-run/kapsel/pkg/handoff"
	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/kapsellog"
	"github.com/kapsel-run/kapsel/pkg/types"
	"golang.org/x/sys/unix"
)

// Options configure the shared host bridge. Defaults come from
// pkg/config's bridge name, subnet, and nameserver settings.
type Options struct {
	BridgeName string
	BridgeIP   string
	Prefix     int
	Nameserver string
}

func (o Options) bridgeNet() (net.IP, error) {
	ip := net.ParseIP(o.BridgeIP)
	if ip == nil {
		return nil, fmt.Errorf("invalid bridge ip %q", o.BridgeIP)
	}
	return ip, nil
}

// EnsureBridge creates the host bridge, assigns it the subnet address,
// and installs the FORWARD/MASQUERADE iptables rules the first time any
// container ever runs on this host. It is a no-op when the bridge
// already exists, gated on /sys/class/net/<bridge>/bridge being present.
func EnsureBridge(o Options) error {
	if bridgeExists(o.BridgeName) {
		return nil
	}

	kapsellog.Printf("bridge %s does not exist, creating it", o.BridgeName)

	if err := run("brctl", "addbr", o.BridgeName); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "brctl addbr", err)
	}
	if err := run("ip", "link", "set", o.BridgeName, "up"); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "ip link set bridge up", err)
	}
	ip, err := o.bridgeNet()
	if err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "bridge subnet", err)
	}
	if err := run("ip", "addr", "add", withPrefix(ip, o.Prefix), "dev", o.BridgeName); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "ip addr add bridge", err)
	}
	if err := run("iptables", "-P", "FORWARD", "ACCEPT"); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "iptables FORWARD policy", err)
	}
	subnet := fmt.Sprintf("%s/%d", ip.Mask(net.CIDRMask(o.Prefix, 32)).String(), o.Prefix)
	if err := run("iptables", "-t", "nat", "-A", "POSTROUTING", "-s", subnet,
		"!", "-o", o.BridgeName, "-j", "MASQUERADE"); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "iptables MASQUERADE", err)
	}
	return nil
}

func bridgeExists(name string) bool {
	_, err := os.Stat("/sys/class/net/" + name + "/bridge")
	return err == nil
}

// AllocateIP picks the container's IPv4 as bridgeIP + (current veth1
// count on the bridge + 1). Racy across concurrent runs, acceptable
// under the single-container-per-invocation model.
func AllocateIP(o Options) (string, error) {
	bridgeIP, err := o.bridgeNet()
	if err != nil {
		return "", kapselerr.New(kapselerr.SetupFailure, "bridge subnet", err)
	}
	count, err := countVeth1Peers(o.BridgeName)
	if err != nil {
		kapsellog.Warnf("veth1 peer count failed, defaulting to 0: %v", err)
		count = 0
	}
	ip, err := addOffset(bridgeIP, count+1)
	if err != nil {
		return "", kapselerr.New(kapselerr.SetupFailure, "compute container ip", err)
	}
	return ip.String(), nil
}

// Worker drives the parent-side per-container network sequence,
// synchronized with the child via the handoff.Synchronizer. It is meant
// to run on its own goroutine, launched by the orchestrator right after
// setup and before clone.
func Worker(sync *handoff.Synchronizer, o Options, id string, veth types.VethPair, containerIP string) error {
	fail := func(kind kapselerr.Kind, op string, err error) error {
		wrapped := kapselerr.New(kind, op, err)
		_ = handoff.Post(sync.NetErr)
		return wrapped
	}

	// 1. ip netns add <id>
	if err := run("ip", "netns", "add", id); err != nil {
		return fail(kapselerr.SetupFailure, "ip netns add", err)
	}

	// 2. signal ns-ready
	if err := handoff.Post(sync.NsReady); err != nil {
		return fail(kapselerr.SetupFailure, "post ns-ready", err)
	}

	// 3. wait for init-proceed (child has bind-mounted its netns), or
	// for the orchestrator's cancel signal if the child exited before
	// ever reaching that point, e.g. it failed mounting /var/run/netns
	// or the bind mount itself. Without this, a dead child leaves the
	// worker blocked here forever and the parent's run never reaches
	// cleanup.
	if err := handoff.WaitEither(sync.InitProceed, sync.Cancel); err != nil {
		if errors.Is(err, handoff.ErrHandoffAborted) {
			return kapselerr.New(kapselerr.SetupFailure, "child exited before netns handoff completed", nil)
		}
		return fail(kapselerr.SetupFailure, "wait init-proceed", err)
	}

	// 4. create veth pair
	if err := run("ip", "link", "add", veth.Inside, "type", "veth", "peer", "name", veth.Outside); err != nil {
		return fail(kapselerr.SetupFailure, "ip link add veth", err)
	}

	// 5. move veth0 into netns, veth1 under the bridge
	if err := run("ip", "link", "set", veth.Inside, "netns", id); err != nil {
		return fail(kapselerr.SetupFailure, "move veth into netns", err)
	}
	if err := run("ip", "link", "set", veth.Outside, "master", o.BridgeName); err != nil {
		return fail(kapselerr.SetupFailure, "attach veth to bridge", err)
	}

	// 6. addressing and bring-up
	if err := runInNetns(id, "ip", "addr", "add", withPrefix(net.ParseIP(containerIP), o.Prefix), "dev", veth.Inside); err != nil {
		return fail(kapselerr.SetupFailure, "assign container ip", err)
	}
	if err := runInNetns(id, "ip", "link", "set", veth.Inside, "up"); err != nil {
		return fail(kapselerr.SetupFailure, "up veth0", err)
	}
	if err := runInNetns(id, "ip", "link", "set", "lo", "up"); err != nil {
		return fail(kapselerr.SetupFailure, "up loopback", err)
	}
	if err := run("ip", "link", "set", veth.Outside, "up"); err != nil {
		return fail(kapselerr.SetupFailure, "up veth1", err)
	}
	bridgeIP, err := o.bridgeNet()
	if err != nil {
		return fail(kapselerr.SetupFailure, "bridge subnet", err)
	}
	if err := runInNetns(id, "ip", "route", "add", "default", "via", bridgeIP.String()); err != nil {
		return fail(kapselerr.SetupFailure, "add default route", err)
	}

	// 7. signal init-done (second init-proceed post)
	if err := handoff.Post(sync.InitProceed); err != nil {
		return fail(kapselerr.SetupFailure, "post init-done", err)
	}
	return nil
}

// NamesFor derives the veth pair names from the container id's first 9
// characters, kept short enough to fit the kernel's IFNAMSIZ limit.
func NamesFor(id string) types.VethPair {
	suffix := id
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return types.VethPair{
		Inside:  "veth0@" + suffix,
		Outside: "veth1@" + suffix,
	}
}

// Teardown reverses a container's network setup: unmounts the netns bind
// file, deletes veth1 (its peer follows automatically), and removes the
// netns entry.
func Teardown(id string, veth types.VethPair) error {
	var firstErr error
	nsPath := "/var/run/netns/" + id
	if err := unix.Unmount(nsPath, unix.MNT_DETACH); err != nil && firstErr == nil {
		firstErr = kapselerr.New(kapselerr.CleanupFailure, "unmount "+nsPath, err)
	}
	if err := run("ip", "link", "del", veth.Outside); err != nil && firstErr == nil {
		firstErr = kapselerr.New(kapselerr.CleanupFailure, "ip link del "+veth.Outside, err)
	}
	if err := run("ip", "netns", "del", id); err != nil && firstErr == nil {
		firstErr = kapselerr.New(kapselerr.CleanupFailure, "ip netns del "+id, err)
	}
	return firstErr
}
