// cpu_engine.go - CPU thread lifecycle: online/offline, idle wait, work dispatch

package main

import (
	"fmt"
	"os"
	"time"
)

// cpuStopTimeout bounds how long a configuration change waits for a CPU
// thread to exit; a work unit that runs longer is reported, not killed.
const cpuStopTimeout = 2 * time.Second

// CPUEngine drives one online CPU: a goroutine that alternates between
// executing queued work units and idling on the CPU's private condition.
// Instruction execution proper lives outside this subsystem; work units
// stand in for execution slices.
type CPUEngine struct {
	machine *MachineState
	ctx     *CPUContext

	work    []func(*CPUContext) // pending work units; guarded by the interrupt lock
	stopReq bool                // offline requested; guarded by the interrupt lock
	done    chan struct{}       // closed when run() returns
}

// CPUOnline configures a CPU online: registers its context, sets its
// started bit and starts its engine goroutine.
func (m *MachineState) CPUOnline(addr int) error {
	if addr < 0 || addr >= m.maxCPU {
		return fmt.Errorf("cpu %d out of range (maxcpu %d)", addr, m.maxCPU)
	}

	m.ObtainIntLock(nil)
	defer m.ReleaseIntLock(nil)

	if m.started.Has(addr) {
		return fmt.Errorf("cpu %d already online", addr)
	}

	c := m.attachCPU(addr)
	c.intPending.Store(false)
	c.atSyncPoint.Store(false)
	c.waitStart = 0

	eng := &CPUEngine{
		machine: m,
		ctx:     c,
		done:    make(chan struct{}),
	}
	m.engines[addr] = eng
	m.started.Set(addr)
	m.verifyMaskInvariants()

	go eng.run()
	return nil
}

// CPUOffline configures a CPU offline. The CPU leaves every membership
// mask immediately; if it was the last outstanding target of an active
// synchronization the initiator is released, so an offline CPU can never
// stall a rendezvous. The engine goroutine is then woken and joined.
func (m *MachineState) CPUOffline(addr int) error {
	m.ObtainIntLock(nil)

	eng := m.engines[addr]
	if eng == nil || !m.started.Has(addr) {
		m.ReleaseIntLock(nil)
		return fmt.Errorf("cpu %d not online", addr)
	}

	eng.stopReq = true
	m.started.Clear(addr)
	m.waiting.Clear(addr)
	if m.syncTargets.Has(addr) {
		m.syncTargets.Clear(addr)
		if m.syncTargets.IsEmpty() {
			m.syncDone.Signal()
		}
	}
	m.engines[addr] = nil
	m.verifyMaskInvariants()

	m.WakeupCPU(eng.ctx)
	m.ReleaseIntLock(nil)

	select {
	case <-eng.done:
		return nil
	case <-time.After(cpuStopTimeout):
		return fmt.Errorf("cpu %d did not reach a stopping point within %v", addr, cpuStopTimeout)
	}
}

// StopAll configures every online CPU offline.
func (m *MachineState) StopAll() {
	m.ObtainIntLock(nil)
	online := m.started.Members()
	m.ReleaseIntLock(nil)

	for _, addr := range online {
		if err := m.CPUOffline(addr); err != nil {
			fmt.Fprintf(os.Stderr, "cpu_engine: %v\n", err)
		}
	}
}

// SubmitWork queues a work unit for a CPU and wakes it. Must not be
// called from a thread already holding the interrupt lock.
func (m *MachineState) SubmitWork(addr int, fn func(*CPUContext)) error {
	m.ObtainIntLock(nil)
	defer m.ReleaseIntLock(nil)

	eng := m.engines[addr]
	if eng == nil {
		return fmt.Errorf("cpu %d not online", addr)
	}
	eng.work = append(eng.work, fn)
	m.WakeupCPU(eng.ctx)
	return nil
}

// run is the CPU thread. Each pass visits the interrupt lock (which is
// where a synchronize-CPUs request gets acknowledged), services any
// pending interrupt flag, then either executes the next work unit outside
// the lock or idles on the private condition.
func (e *CPUEngine) run() {
	defer close(e.done)
	m := e.machine

	for {
		m.ObtainIntLock(e.ctx)

		var fn func(*CPUContext)
		for {
			if e.stopReq {
				m.ReleaseIntLock(e.ctx)
				return
			}
			if e.ctx.IntPending() {
				// Interrupt delivery belongs to the execution engine;
				// visiting this point under the lock is what the sync
				// protocol requires of us.
				e.ctx.ClearPendingInterrupt()
			}
			if len(e.work) > 0 {
				fn = e.work[0]
				e.work = e.work[1:]
				break
			}
			e.idleWait()
		}

		m.ReleaseIntLock(e.ctx)
		fn(e.ctx)
	}
}

// idleWait parks the CPU on its private condition with the waiting bit
// set and the wait timestamps maintained. Called and returns with the
// interrupt lock owned; ownership is given up for the duration of the
// wait and reacquired through the regular sync-aware path.
func (e *CPUEngine) idleWait() {
	m, c := e.machine, e.ctx

	m.waiting.Set(c.cpuAddr)
	c.waitStart = todNow()
	m.lockOwner = lockOwnerNone

	c.cond.Wait()

	if c.waitStart != 0 {
		c.waitTotal += time.Duration(todNow() - c.waitStart)
		c.waitStart = 0
	}
	m.waiting.Clear(c.cpuAddr)
	m.acquireOwnership(c)
}
