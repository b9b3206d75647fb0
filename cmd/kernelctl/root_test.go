package kernelctl

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetStateRoot_DefaultsUnderHomeDir(t *testing.T) {
	prev := globalRoot
	globalRoot = ""
	defer func() { globalRoot = prev }()

	root := GetStateRoot()
	if !strings.HasSuffix(root, filepath.Join(".kernelctl")) {
		t.Errorf("GetStateRoot() = %q, want a path ending in .kernelctl", root)
	}
}

func TestGetStateRoot_HonorsRootFlag(t *testing.T) {
	prev := globalRoot
	globalRoot = "/tmp/custom-root"
	defer func() { globalRoot = prev }()

	if got := GetStateRoot(); got != "/tmp/custom-root" {
		t.Errorf("GetStateRoot() = %q, want /tmp/custom-root", got)
	}
}

func TestGetRegistryPath_JoinsStateRootWithThreadsJSON(t *testing.T) {
	prev := globalRoot
	globalRoot = "/tmp/custom-root"
	defer func() { globalRoot = prev }()

	want := filepath.Join("/tmp/custom-root", "threads.json")
	if got := GetRegistryPath(); got != want {
		t.Errorf("GetRegistryPath() = %q, want %q", got, want)
	}
}

func TestRootCmd_RegistersEveryCommand(t *testing.T) {
	want := []string{"create", "start", "run", "list", "state", "signal", "exec", "rm", "spec", "version"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("rootCmd is missing the %q subcommand", name)
		}
	}
}
