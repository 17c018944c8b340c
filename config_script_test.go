// config_script_test.go - Lua configuration script tests

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meridian.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigScript(t *testing.T) {
	path := writeScript(t, `
maxcpu(16)
numcpu(4)
mainsize(64)
online {0, 1, 3}
`)

	cfg, err := LoadConfigScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxCPU != 16 || cfg.NumCPU != 4 || cfg.MainSizeMB != 64 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if want := []int{0, 1, 3}; !reflect.DeepEqual(cfg.Online, want) {
		t.Fatalf("online = %v, want %v", cfg.Online, want)
	}
}

func TestLoadConfigScriptDefaults(t *testing.T) {
	path := writeScript(t, `-- empty machine description`)

	cfg, err := LoadConfigScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxCPU != 8 || cfg.NumCPU != 2 || cfg.MainSizeMB != 16 || cfg.Online != nil {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigScriptValidation(t *testing.T) {
	for name, body := range map[string]string{
		"maxcpu too large": "maxcpu(100)",
		"numcpu negative":  "numcpu(-1)",
		"online range":     "maxcpu(2)\nonline {0, 5}",
		"lua error":        "nosuchdirective(1)",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfigScript(writeScript(t, body)); err == nil {
				t.Errorf("script %q should have been rejected", body)
			}
		})
	}
}

func TestConfigBuild(t *testing.T) {
	cfg := &MachineConfig{MaxCPU: 4, NumCPU: 0, MainSizeMB: 1, Online: []int{1, 2}}

	machine, stor, err := cfg.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer machine.StopAll()

	if stor.Size() != ONE_MEGABYTE {
		t.Errorf("storage size = %d, want %d", stor.Size(), ONE_MEGABYTE)
	}
	st := machine.Snapshot()
	if want := []int{1, 2}; !reflect.DeepEqual(st.Online, want) {
		t.Fatalf("online = %v, want %v", st.Online, want)
	}
}

func TestConfigBuildNumCPUFallback(t *testing.T) {
	cfg := &MachineConfig{MaxCPU: 4, NumCPU: 3, MainSizeMB: 1}

	machine, _, err := cfg.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer machine.StopAll()

	if want := []int{0, 1, 2}; !reflect.DeepEqual(machine.Snapshot().Online, want) {
		t.Fatalf("online = %v, want %v", machine.Snapshot().Online, want)
	}
}
