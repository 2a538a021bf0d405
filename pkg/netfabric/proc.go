package netfabric

import (
	"bytes"
	"fmt"
	"os/exec"
)

// run executes name with args, returning stderr-annotated errors. All of
// the engine's ip/iptables/brctl invocations except the veth1-counting
// pipeline (runPipeline) go through this helper so failures are
// uniformly reported.
func run(args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("run: no arguments")
	}
	cmd := exec.Command(args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", joinArgs(args), err, stderr.String())
	}
	return nil
}

// runInNetns runs args inside the named network namespace via `ip netns
// exec`.
func runInNetns(ns string, args ...string) error {
	full := append([]string{"ip", "netns", "exec", ns}, args...)
	return run(full...)
}

// runPipeline pipes the output of the first command into the second,
// returning the second command's stdout. Used by the (intentionally
// best-effort) veth1-counting IP allocator.
func runPipeline(first, second []string) (string, error) {
	c1 := exec.Command(first[0], first[1:]...)
	c2 := exec.Command(second[0], second[1:]...)

	pipe, err := c1.StdoutPipe()
	if err != nil {
		return "", err
	}
	c2.Stdin = pipe

	var out bytes.Buffer
	c2.Stdout = &out

	if err := c2.Start(); err != nil {
		return "", err
	}
	if err := c1.Run(); err != nil {
		return out.String(), err
	}
	err = c2.Wait()
	return out.String(), err
}

func joinArgs(args []string) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}
