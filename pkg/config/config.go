// Package config manages Kapsel's on-disk defaults file: a well-known
// path is read if present, otherwise built-in defaults are returned.
// EnsureLayout separately creates the directory layout under the root.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kapsel-run/kapsel/pkg/types"
)

// Defaults is the persisted shape of <root>/kapsel.json, written by the
// "configure" command and read by "run" to fill in flags left at their
// zero value.
type Defaults struct {
	Distro types.Distro         `json:"distro"`
	Limits types.ResourceLimits `json:"limits"`
	Bridge BridgeDefaults       `json:"bridge"`
}

type BridgeDefaults struct {
	Name       string `json:"name"`
	IP         string `json:"ip"`
	Prefix     int    `json:"prefix"`
	Nameserver string `json:"nameserver"`
}

func path(rootDir string) string {
	return filepath.Join(rootDir, "kapsel.json")
}

// Load reads <root>/kapsel.json if it exists; otherwise it returns the
// built-in defaults with no error.
func Load(rootDir string) (Defaults, error) {
	d := Defaults{
		Distro: types.Ubuntu,
		Limits: types.ResourceLimits{
			ProcessNumber: "20",
			CPUShare:      512,
			Memory:        "256m",
			SwapMemory:    "512m",
		},
		Bridge: BridgeDefaults{Name: "kapsel0", IP: "172.30.0.1", Prefix: 24, Nameserver: "8.8.8.8"},
	}

	f, err := os.Open(path(rootDir))
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return d, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return d, err
	}
	return d, nil
}

// Save writes d to <root>/kapsel.json, creating rootDir if needed.
func Save(rootDir string, d Defaults) error {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(path(rootDir))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// EnsureLayout creates the standard subdirectories under rootDir:
// cache/, containers/, images/, logs/.
func EnsureLayout(rootDir string) error {
	for _, sub := range []string{"cache", "containers", "images", "logs"} {
		if err := os.MkdirAll(filepath.Join(rootDir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}
