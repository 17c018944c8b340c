// machine_state.go - Shared multiprocessor coordination state for one machine

/*
(c) 2025 - 2026 The Meridian/390 Project
https://github.com/meridian390/MeridianEngine
License: GPLv3 or later
*/

/*
machine_state.go - Machine Coordination State

One MachineState exists per emulated machine and is passed by reference to
every subsystem that touches shared interrupt or configuration state; there
is deliberately no package-level instance, so tests can run several machines
in one process.

A single mutex (the interrupt lock) guards the membership masks, the lock
owner tag and the synchronization protocol state. Two condition variables
drive the CPU rendezvous: syncDone is signalled when the last targeted CPU
acknowledges a synchronization request, and syncRelease is broadcast when
the initiating CPU has finished its globally-visible update and released
ownership. Each CPUContext additionally carries a private condition bound
to the same mutex for targeted wakeups.
*/

package main

import (
	"fmt"
	"sync"
)

// Lock owner sentinels. Any non-negative value is the address of the CPU
// that owns the interrupt lock.
const (
	lockOwnerNone  int16 = -1 // nobody holds the lock
	lockOwnerOther int16 = -2 // a non-CPU thread (I/O completion, panel, config)
)

// MachineState is the single shared coordination object of one machine.
type MachineState struct {
	intLock sync.Mutex // the machine interrupt lock; guards everything below

	started     CPUSet // CPUs configured online
	waiting     CPUSet // subset of started currently idle awaiting work
	syncTargets CPUSet // subset of started that must acknowledge an active sync
	syncing     bool   // a synchronization request is outstanding
	lockOwner   int16  // current lock holder, or a sentinel

	syncDone    *sync.Cond // signalled when syncTargets becomes empty
	syncRelease *sync.Cond // broadcast when the sync initiator releases ownership

	maxCPU  int // configured CPU capacity of this machine
	hiCPU   int // one past the highest CPU address ever brought online
	cpus    [MAX_CPU_ENGINES]*CPUContext
	engines [MAX_CPU_ENGINES]*CPUEngine
}

// NewMachineState creates the coordination state for a machine with the
// given CPU capacity (clamped to 1..MAX_CPU_ENGINES).
func NewMachineState(maxCPU int) *MachineState {
	if maxCPU < 1 {
		maxCPU = 1
	}
	if maxCPU > MAX_CPU_ENGINES {
		maxCPU = MAX_CPU_ENGINES
	}
	m := &MachineState{
		maxCPU:    maxCPU,
		lockOwner: lockOwnerNone,
	}
	m.syncDone = sync.NewCond(&m.intLock)
	m.syncRelease = sync.NewCond(&m.intLock)
	return m
}

// MaxCPU returns the configured CPU capacity.
func (m *MachineState) MaxCPU() int {
	return m.maxCPU
}

// attachCPU creates (or returns) the context for a CPU address without
// bringing an engine online. Caller must hold the interrupt lock.
func (m *MachineState) attachCPU(addr int) *CPUContext {
	c := m.cpus[addr]
	if c == nil {
		c = newCPUContext(addr)
		c.cond = sync.NewCond(&m.intLock)
		m.cpus[addr] = c
	}
	if addr+1 > m.hiCPU {
		m.hiCPU = addr + 1
	}
	return c
}

// verifyMaskInvariants panics when a membership mask escapes its superset.
// Cheap enough to run at every configuration mutation.
func (m *MachineState) verifyMaskInvariants() {
	if !m.waiting.SubsetOf(m.started) || !m.syncTargets.SubsetOf(m.started) {
		panic(fmt.Sprintf(
			"machine mask invariant violated: started=%s waiting=%s syncTargets=%s",
			m.started, m.waiting, m.syncTargets))
	}
}
