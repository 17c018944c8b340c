// main.go - Main entry point for the Meridian/390 Engine

/*
(c) 2025 - 2026 The Meridian/390 Project
https://github.com/meridian390/MeridianEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
)

func boilerPlate() {
	fmt.Println("\nMeridian/390 Engine - a multiprocessor mainframe emulator core")
	fmt.Println("(c) 2025 - 2026 The Meridian/390 Project")
	fmt.Println("https://github.com/meridian390/MeridianEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	cfgPath := flag.String("config", "", "Lua machine configuration script")
	maxCPU := flag.Int("maxcpu", 8, "CPU capacity of the machine")
	numCPU := flag.Int("numcpu", 2, "CPUs to bring online at startup")
	mainSize := flag.Int("mainsize", 16, "main storage size in MB")
	usePanel := flag.Bool("panel", true, "run the interactive operator panel")
	flag.Parse()

	boilerPlate()

	var cfg *MachineConfig
	if *cfgPath != "" {
		loaded, err := LoadConfigScript(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "meridian: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		c := DefaultMachineConfig()
		c.MaxCPU = *maxCPU
		c.NumCPU = *numCPU
		c.MainSizeMB = *mainSize
		cfg = &c
	}

	machine, stor, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "meridian: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%d of %d CPUs online, %dMB main storage\n\n",
		len(machine.Snapshot().Online), cfg.MaxCPU, cfg.MainSizeMB)

	if *usePanel {
		host := NewPanelHost(machine, stor)
		host.Start()
		<-host.Done()
		host.Stop()
	} else {
		// Headless: run until interrupted.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
	}

	machine.StopAll()
}
