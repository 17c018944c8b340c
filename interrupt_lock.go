// interrupt_lock.go - Shared interrupt lock and the synchronize-CPUs rendezvous

/*
(c) 2025 - 2026 The Meridian/390 Project
https://github.com/meridian390/MeridianEngine
License: GPLv3 or later
*/

package main

import "fmt"

/*
The master interrupt lock can be obtained by any thread. When obtained by a
CPU thread we additionally check whether a synchronize-CPUs request is in
progress: the acquiring CPU must first acknowledge the request (drop its bit
from the target mask, signalling the initiator when the mask empties) and
then park on syncRelease until the initiator has finished. Ordering the
acknowledgment before the retry is what prevents deadlock between an
initiator waiting for its peers and a peer that independently wants the
lock. Non-CPU threads (I/O completion, panel, configuration) never take
part in the protocol.
*/

// ObtainIntLock blocks until the caller is the sole owner of the machine
// interrupt lock. cpu identifies the calling CPU thread; nil marks an
// external (non-CPU) thread.
func (m *MachineState) ObtainIntLock(cpu *CPUContext) {
	if cpu == nil {
		m.intLock.Lock()
		m.lockOwner = lockOwnerOther
		return
	}

	// The CPU is at a defined safe point for as long as it is blocked
	// here; synchronize-CPUs initiators skip such CPUs.
	cpu.atSyncPoint.Store(true)

	m.intLock.Lock()
	m.acquireOwnership(cpu)
}

// acquireOwnership completes a CPU's acquisition once the underlying mutex
// is held: acknowledge any active synchronization request, then publish
// ownership. Also used on the wakeup path out of the idle wait.
func (m *MachineState) acquireOwnership(cpu *CPUContext) {
	for m.syncing {
		m.syncTargets.Clear(cpu.cpuAddr)
		if m.syncTargets.IsEmpty() {
			m.syncDone.Signal()
		}
		m.syncRelease.Wait()
	}
	cpu.atSyncPoint.Store(false)
	m.lockOwner = int16(cpu.cpuAddr)
}

// ReleaseIntLock releases the machine interrupt lock. Releasing from a
// thread that is not the recorded owner is a programming error.
func (m *MachineState) ReleaseIntLock(cpu *CPUContext) {
	switch {
	case cpu == nil && m.lockOwner != lockOwnerOther:
		panic(fmt.Sprintf("ReleaseIntLock: external thread releasing lock owned by %d", m.lockOwner))
	case cpu != nil && m.lockOwner != int16(cpu.cpuAddr):
		panic(fmt.Sprintf("ReleaseIntLock: CPU %d releasing lock owned by %d", cpu.cpuAddr, m.lockOwner))
	}
	m.lockOwner = lockOwnerNone
	m.intLock.Unlock()
}

// SynchronizeCPUs brings every other running CPU to a safe point before
// returning. The caller must own the interrupt lock and keeps it on
// return; at that point each peer is either parked at its own sync point
// or blocked on the lock having already acknowledged, so none can be in
// the middle of observing the caller's subsequent update.
//
// Liveness depends on every running peer eventually noticing its
// pending-interrupt flag and visiting the lock; there is no timeout.
func (m *MachineState) SynchronizeCPUs(cpu *CPUContext) {
	if m.lockOwner != int16(cpu.cpuAddr) {
		panic(fmt.Sprintf("SynchronizeCPUs: CPU %d does not own the interrupt lock (owner %d)", cpu.cpuAddr, m.lockOwner))
	}
	if m.syncing {
		panic("SynchronizeCPUs: synchronization already in progress")
	}

	// Deselect self and the idle CPUs; they cannot be mid-update.
	mask := m.started &^ (m.waiting | cpu.cpuBit)

	// Deselect CPUs already at a sync point and flag the rest.
	n := 0
	for i := 0; !mask.IsEmpty() && i < m.hiCPU; i++ {
		if !mask.Has(i) {
			continue
		}
		peer := m.cpus[i]
		if peer.atSyncPoint.Load() {
			mask.Clear(i)
			continue
		}
		n++
		peer.SetPendingInterrupt()
	}

	// No active peer needs to react: already synchronized.
	if n == 0 || mask.IsEmpty() {
		return
	}

	// Open an interrupt window for the flagged peers: give up exclusive
	// ownership (the protocol state keeps them honest) and wait for the
	// last acknowledgment.
	m.syncTargets = mask
	m.syncing = true
	m.lockOwner = lockOwnerNone

	for !m.syncTargets.IsEmpty() {
		m.syncDone.Wait()
	}

	m.lockOwner = int16(cpu.cpuAddr)
	m.syncing = false

	m.syncRelease.Broadcast()
}
