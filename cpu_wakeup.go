// cpu_wakeup.go - Wakeup policies for idle CPU threads

package main

// All wakeup operations must be called with the machine interrupt lock
// held: the wait-timing fields they read belong to the target CPUs and
// are only stable under the lock.

// WakeupCPU unconditionally signals one CPU's private condition. Safe
// no-op when the CPU is not waiting.
func (m *MachineState) WakeupCPU(cpu *CPUContext) {
	cpu.cond.Signal()
}

// WakeupCPUMask wakes exactly one CPU from the mask: the least recently
// used one. Spreading completion wakeups across idle CPUs keeps the CPU
// threads active and distributes the I/O load instead of always hitting
// the same engine.
func (m *MachineState) WakeupCPUMask(mask CPUSet) {
	if lru := m.selectLRUCPU(mask); lru != nil {
		m.WakeupCPU(lru)
	}
}

// selectLRUCPU picks the mask member with the earliest nonzero wait start.
// On an exact wait-start tie the CPU with the greater-or-equal cumulative
// wait wins, so the last-scanned CPU takes exact ties. That bias is
// documented behaviour; callers depend on it staying put.
func (m *MachineState) selectLRUCPU(mask CPUSet) *CPUContext {
	var lru *CPUContext
	var lruWaitStart int64

	for _, addr := range mask.Members() {
		cur := m.cpus[addr]
		if cur == nil {
			continue
		}
		curWaitStart := cur.waitStart

		// A zero wait start should not happen for a waiting CPU, but it
		// only wins while nothing has been selected yet.
		if lru == nil ||
			(curWaitStart > 0 &&
				(curWaitStart < lruWaitStart ||
					(curWaitStart == lruWaitStart && cur.waitTotal >= lru.waitTotal))) {
			lru = cur
			lruWaitStart = curWaitStart
		}
	}
	return lru
}

// WakeupCPUsMask unconditionally wakes every CPU in the mask; used when
// every member must independently react to the same event.
func (m *MachineState) WakeupCPUsMask(mask CPUSet) {
	for _, addr := range mask.Members() {
		if cpu := m.cpus[addr]; cpu != nil {
			m.WakeupCPU(cpu)
		}
	}
}
