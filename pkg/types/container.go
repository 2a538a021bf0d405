package types

import "time"

// Distro is one of the four supported rootfs distributions.
type Distro string

const (
	Ubuntu Distro = "ubuntu"
	Alpine Distro = "alpine"
	CentOS Distro = "centos"
	Arch   Distro = "arch"
)

// ResourceLimits are the cgroup v1 knobs applied to a container.
// ProcessNumber, Memory and SwapMemory are strings because the kernel
// accepts both numeric values and sentinels like "max"; CPUShare is a
// plain integer.
type ResourceLimits struct {
	ProcessNumber string `json:"process_number"`
	CPUShare      int    `json:"cpu_share"`
	Memory        string `json:"memory"`
	SwapMemory    string `json:"memory_swap"`
}

// VethPair names the two ends of the veth link created for a container.
type VethPair struct {
	Inside  string
	Outside string
}

// Container is the in-memory record the orchestrator owns for the
// duration of a single run. It is the single naming key for every
// host-wide resource the run touches: cgroup subtree, netns entry, veth
// pair, hostname and on-disk directory all derive from Id.
type Container struct {
	Id string

	Distro   Distro
	RootDir  string
	LowerDir string

	Command     []string
	CurrentUser string

	ChildPid int

	Veth       VethPair
	IP         string
	Nameserver string

	Limits ResourceLimits

	BuildImage bool

	CreatedAt time.Time
}

// ContainerDir is the per-container directory under <root>/containers/<id>.
func (c Container) ContainerDir() string {
	return c.RootDir + "/containers/" + c.Id
}

// RootfsDir is the merged overlay mountpoint (or, in build-image mode, the
// raw extraction target).
func (c Container) RootfsDir() string {
	return c.ContainerDir() + "/rootfs"
}

// UpperDir is the overlay's writable layer.
func (c Container) UpperDir() string {
	return c.ContainerDir() + "/copy-on-write"
}

// WorkDir is the overlay driver's scratch directory.
func (c Container) WorkDir() string {
	return c.ContainerDir() + "/work"
}
