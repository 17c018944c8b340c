// config_script.go - Lua machine configuration scripts

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// MachineConfig is the machine description assembled from the command
// line and an optional Lua configuration script.
type MachineConfig struct {
	MaxCPU     int   // CPU capacity of the coordination state
	NumCPU     int   // CPUs brought online at startup when Online is empty
	MainSizeMB int   // main storage size
	Online     []int // explicit initial online list; overrides NumCPU
}

// DefaultMachineConfig returns the defaults a bare startup uses.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		MaxCPU:     8,
		NumCPU:     2,
		MainSizeMB: 16,
	}
}

// LoadConfigScript runs a Lua configuration script and returns the
// resulting machine description. The script sees the directives as
// global functions:
//
//	maxcpu(8)
//	numcpu(4)
//	mainsize(64)
//	online {0, 1, 3}
func LoadConfigScript(path string) (*MachineConfig, error) {
	cfg := DefaultMachineConfig()

	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("maxcpu", L.NewFunction(func(L *lua.LState) int {
		cfg.MaxCPU = L.CheckInt(1)
		return 0
	}))
	L.SetGlobal("numcpu", L.NewFunction(func(L *lua.LState) int {
		cfg.NumCPU = L.CheckInt(1)
		return 0
	}))
	L.SetGlobal("mainsize", L.NewFunction(func(L *lua.LState) int {
		cfg.MainSizeMB = L.CheckInt(1)
		return 0
	}))
	L.SetGlobal("online", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		cfg.Online = cfg.Online[:0]
		tbl.ForEach(func(_, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				cfg.Online = append(cfg.Online, int(n))
			}
		})
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *MachineConfig) validate() error {
	if cfg.MaxCPU < 1 || cfg.MaxCPU > MAX_CPU_ENGINES {
		return fmt.Errorf("config: maxcpu %d out of range 1..%d", cfg.MaxCPU, MAX_CPU_ENGINES)
	}
	if cfg.NumCPU < 0 || cfg.NumCPU > cfg.MaxCPU {
		return fmt.Errorf("config: numcpu %d out of range 0..%d", cfg.NumCPU, cfg.MaxCPU)
	}
	if cfg.MainSizeMB < 1 {
		return fmt.Errorf("config: mainsize %dMB too small", cfg.MainSizeMB)
	}
	for _, addr := range cfg.Online {
		if addr < 0 || addr >= cfg.MaxCPU {
			return fmt.Errorf("config: online cpu %d out of range 0..%d", addr, cfg.MaxCPU-1)
		}
	}
	return nil
}

// Build constructs the machine the description names: coordination state,
// main storage, and the initial set of online CPUs.
func (cfg *MachineConfig) Build() (*MachineState, *MainStorage, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	machine := NewMachineState(cfg.MaxCPU)
	stor, err := NewMainStorage(cfg.MainSizeMB)
	if err != nil {
		return nil, nil, err
	}

	online := cfg.Online
	if len(online) == 0 {
		for addr := 0; addr < cfg.NumCPU; addr++ {
			online = append(online, addr)
		}
	}
	for _, addr := range online {
		if err := machine.CPUOnline(addr); err != nil {
			machine.StopAll()
			return nil, nil, err
		}
	}
	return machine, stor, nil
}
