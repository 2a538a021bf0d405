package netfabric

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// addOffset returns ip + offset within a /32 view, e.g. 107.17.0.1 + 2 ==
// 107.17.0.3. Implemented directly since net.IP offers no arithmetic of
// its own.
func addOffset(ip net.IP, offset int) (net.IP, error) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", ip)
	}
	n := binary.BigEndian.Uint32(v4)
	n += uint32(offset)
	out := make(net.IP, 4)
	binary.BigEndian.PutUint32(out, n)
	return out, nil
}

func withPrefix(ip net.IP, prefix int) string {
	return fmt.Sprintf("%s/%d", ip.String(), prefix)
}

// countVeth1Peers counts how many "veth1" interfaces are currently
// attached to the bridge, by piping `ip link show master <bridge>`
// through a grep-and-count.
func countVeth1Peers(bridge string) (int, error) {
	out, err := runPipeline(
		[]string{"ip", "link", "show", "master", bridge},
		[]string{"grep", "-c", "veth1"},
	)
	trimmed := strings.TrimSpace(out)
	if err != nil {
		// grep -c returns exit status 1 when the count is zero; that is
		// not a real failure, just "no matches yet".
		if trimmed == "" || trimmed == "0" {
			return 0, nil
		}
	}
	n, convErr := strconv.Atoi(trimmed)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}
