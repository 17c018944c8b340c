// cpu_context.go - Per-CPU thread state (identity, wait timing, interrupt flags)

package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// CPUContext holds the coordination state of one emulated CPU thread.
//
// The wait-timing fields are written only by the owning CPU thread and
// read by other threads only while holding the machine interrupt lock
// (wakeup selection). The interrupt and sync-point flags are polled
// cooperatively by the owning CPU without the lock, hence atomics.
type CPUContext struct {
	cpuAddr int    // stable CPU address for the context lifetime
	cpuBit  CPUSet // this CPU's bit in all membership masks
	prefix  uint32 // PSA prefix register (channel status storing)

	waitStart int64         // TOD (ns) the idle wait began; 0 while running
	waitTotal time.Duration // cumulative idle time, used for wakeup tie-breaking

	intPending  atomic.Bool // interrupt pending, polled by the CPU between units of work
	atSyncPoint atomic.Bool // set while blocked obtaining the interrupt lock

	// guest is the nested (guest-mode) sub-context, non-nil only while
	// this CPU executes a virtualized instance. Mutated only under the
	// machine interrupt lock.
	guest *CPUContext

	cond *sync.Cond // private wakeup condition, bound to the machine interrupt lock
}

func newCPUContext(addr int) *CPUContext {
	return &CPUContext{
		cpuAddr: addr,
		cpuBit:  CPUBit(addr),
	}
}

// Addr returns the CPU address.
func (c *CPUContext) Addr() int {
	return c.cpuAddr
}

// SetPendingInterrupt flags an interrupt for this CPU and, when a guest
// context is active, propagates the flag into it so the guest reacts too.
func (c *CPUContext) SetPendingInterrupt() {
	c.intPending.Store(true)
	if g := c.guest; g != nil {
		g.SetPendingInterrupt()
	}
}

// ClearPendingInterrupt drops the pending-interrupt flag on this context
// only; a guest keeps its own copy until the guest clears it.
func (c *CPUContext) ClearPendingInterrupt() {
	c.intPending.Store(false)
}

// IntPending reports whether an interrupt is pending for this context.
func (c *CPUContext) IntPending() bool {
	return c.intPending.Load()
}

// EnterGuest attaches and returns a nested guest context. Caller must
// hold the machine interrupt lock.
func (c *CPUContext) EnterGuest() *CPUContext {
	g := newCPUContext(c.cpuAddr)
	c.guest = g
	return g
}

// LeaveGuest detaches the nested guest context. Caller must hold the
// machine interrupt lock.
func (c *CPUContext) LeaveGuest() {
	c.guest = nil
}

// Guest returns the active nested context, or nil.
func (c *CPUContext) Guest() *CPUContext {
	return c.guest
}

// SetPrefix sets the PSA prefix address for this context.
func (c *CPUContext) SetPrefix(pfx uint32) {
	c.prefix = pfx
}

// Prefix returns the PSA prefix address.
func (c *CPUContext) Prefix() uint32 {
	return c.prefix
}

// todNow is the wall-clock source for wait timestamps.
func todNow() int64 {
	return time.Now().UnixNano()
}
