// machine_test_helpers_test.go - Shared helpers for coordination tests

package main

import (
	"testing"
	"time"
)

// peekMachine runs f with the raw machine mutex held, for test-side
// inspection of coordination state without entering the lock protocol.
func peekMachine(m *MachineState, f func()) {
	m.intLock.Lock()
	f()
	m.intLock.Unlock()
}

// waitUntil polls cond (outside any lock) until it holds or the timeout
// expires.
func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// attachStartedCPUs registers contexts for the given addresses and marks
// them started, without running engines. For tests that drive the lock
// and sync protocol directly from goroutines.
func attachStartedCPUs(m *MachineState, addrs ...int) []*CPUContext {
	ctxs := make([]*CPUContext, 0, len(addrs))
	m.intLock.Lock()
	for _, addr := range addrs {
		c := m.attachCPU(addr)
		m.started.Set(addr)
		ctxs = append(ctxs, c)
	}
	m.verifyMaskInvariants()
	m.intLock.Unlock()
	return ctxs
}

// expectPanic fails the test unless f panics.
func expectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s did not panic", what)
		}
	}()
	f()
}
