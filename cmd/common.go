package cmd

import (
	"os"
	"path/filepath"
)

// defaultRootDir resolves the engine's state directory the same way for
// every command that needs one: $KAPSEL_ROOT if set, otherwise
// ~/.local/share/kapsel.
func defaultRootDir() string {
	if v := os.Getenv("KAPSEL_ROOT"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/var/lib/kapsel"
	}
	return filepath.Join(home, ".local", "share", "kapsel")
}
