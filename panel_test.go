// panel_test.go - Operator panel command tests

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestPanel(t *testing.T, online int) (*Panel, *MachineState, *bytes.Buffer) {
	t.Helper()
	cfg := &MachineConfig{MaxCPU: 4, NumCPU: online, MainSizeMB: 1}
	machine, stor, err := cfg.Build()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(machine.StopAll)

	out := &bytes.Buffer{}
	return NewPanel(machine, stor, out), machine, out
}

func TestPanelStartStopStatus(t *testing.T) {
	p, m, out := newTestPanel(t, 1)

	if !p.Execute("start 1") {
		t.Fatal("start must not quit the panel")
	}
	if !strings.Contains(out.String(), "cpu01 online") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if len(m.Snapshot().Online) != 2 {
		t.Fatal("cpu1 should be online")
	}

	out.Reset()
	p.Execute("stop 1")
	if !strings.Contains(out.String(), "cpu01 offline") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	p.Execute("stop 1")
	if !strings.Contains(out.String(), "panel:") {
		t.Error("stopping an offline CPU should report an error")
	}

	out.Reset()
	p.Execute("status")
	if !strings.Contains(out.String(), "online [0]") {
		t.Fatalf("status output missing masks: %q", out.String())
	}
}

func TestPanelUnknownAndEmpty(t *testing.T) {
	p, _, out := newTestPanel(t, 0)

	if !p.Execute("") {
		t.Error("empty line must not quit")
	}
	p.Execute("frobnicate")
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if p.Execute("quit") {
		t.Error("quit must end the panel loop")
	}
}

func TestPanelSignalAndSnapshot(t *testing.T) {
	p, m, out := newTestPanel(t, 2)

	waitUntil(t, 2*time.Second, "CPUs idle", func() bool {
		var ok bool
		peekMachine(m, func() { ok = m.waiting.Count() == 2 })
		return ok
	})

	p.Execute("signal all")
	p.Execute("signal lru")
	p.Execute("signal 0")

	out.Reset()
	p.Execute("signal 9")
	if !strings.Contains(out.String(), "bad cpu") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	p.Execute("snapshot")
	if !strings.Contains(out.String(), `"online":[0,1]`) {
		t.Fatalf("snapshot output missing JSON: %q", out.String())
	}
}

func TestPanelQuiesce(t *testing.T) {
	p, m, out := newTestPanel(t, 3)

	// One busy peer that honours the cooperative polling contract.
	busyDone := make(chan struct{})
	if err := m.SubmitWork(1, func(cpu *CPUContext) {
		defer close(busyDone)
		for !cpu.IntPending() {
			time.Sleep(time.Millisecond)
		}
	}); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, 2*time.Second, "CPU1 busy", func() bool {
		var busy bool
		peekMachine(m, func() { busy = !m.waiting.Has(1) })
		return busy
	})

	p.Execute("quiesce")
	if !strings.Contains(out.String(), "quiesce complete") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	<-busyDone
}

func TestPanelClear(t *testing.T) {
	p, _, out := newTestPanel(t, 0)

	// Dirty a stretch of storage, then clear it from the panel.
	fillStorage(p.stor, 0xEE)
	p.Execute("clear 0x1000 8192")
	if !strings.Contains(out.String(), "cleared 8192 bytes") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	for i := 0x1000; i < 0x3000; i++ {
		if p.stor.mem[i] != 0 {
			t.Fatalf("byte %#x not cleared", i)
		}
	}

	out.Reset()
	p.Execute("clear zz 1")
	if !strings.Contains(out.String(), "usage:") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
