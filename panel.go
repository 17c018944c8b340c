// panel.go - Operator panel command interpreter

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// quiesceTimeout bounds how long the panel waits for a quiesce cycle; the
// rendezvous itself has no timeout, so the panel reports rather than hangs
// when a CPU never reaches a sync point.
const quiesceTimeout = 5 * time.Second

// Panel interprets operator commands against one machine. It talks to the
// coordination state the way any external (non-CPU) thread does: through
// the interrupt lock with a nil context.
type Panel struct {
	machine *MachineState
	stor    *MainStorage
	out     io.Writer
}

// NewPanel creates a panel bound to a machine and its storage.
func NewPanel(machine *MachineState, stor *MainStorage, out io.Writer) *Panel {
	return &Panel{machine: machine, stor: stor, out: out}
}

// Execute runs one command line. Returns false when the operator quits.
func (p *Panel) Execute(line string) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return true
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "help", "?":
		p.cmdHelp()
	case "status":
		p.cmdStatus()
	case "snapshot":
		p.cmdSnapshot()
	case "start":
		p.cmdStart(args)
	case "stop":
		p.cmdStop(args)
	case "signal":
		p.cmdSignal(args)
	case "quiesce":
		p.cmdQuiesce()
	case "clear":
		p.cmdClear(args)
	case "quit", "exit":
		return false
	default:
		fmt.Fprintf(p.out, "panel: unknown command %q (try help)\n", cmd)
	}
	return true
}

func (p *Panel) cmdHelp() {
	fmt.Fprint(p.out, ""+
		"  status           show masks, lock owner and per-CPU state\n"+
		"  snapshot         dump machine status as JSON\n"+
		"  start <cpu>      configure a CPU online\n"+
		"  stop <cpu>       configure a CPU offline\n"+
		"  signal <cpu>     wake one CPU\n"+
		"  signal lru       wake the longest-idle CPU\n"+
		"  signal all       wake every online CPU\n"+
		"  quiesce          run a synchronize-CPUs cycle from CPU work\n"+
		"  clear <hex> <n>  clear n bytes of storage at a hex address\n"+
		"  quit             leave the panel\n")
}

func (p *Panel) cmdStatus() {
	st := p.machine.Snapshot()
	fmt.Fprintf(p.out, "online %v  waiting %v  syncTargets %v  syncing %v  lock %s\n",
		st.Online, st.Waiting, st.SyncTargets, st.Syncing, st.LockOwner)
	for _, c := range st.CPUs {
		fmt.Fprintf(p.out, "  cpu%02d waiting=%v intPending=%v atSyncPoint=%v guest=%v waitTotal=%v\n",
			c.Addr, c.Waiting, c.IntPending, c.AtSyncPoint, c.Guest,
			time.Duration(c.WaitTotalNs))
	}
}

func (p *Panel) cmdSnapshot() {
	data, err := MarshalStatus(p.machine.Snapshot())
	if err != nil {
		fmt.Fprintf(p.out, "panel: snapshot: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "%s\n", data)
}

func (p *Panel) cmdStart(args []string) {
	addr, ok := p.cpuArg(args)
	if !ok {
		return
	}
	if err := p.machine.CPUOnline(addr); err != nil {
		fmt.Fprintf(p.out, "panel: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "cpu%02d online\n", addr)
}

func (p *Panel) cmdStop(args []string) {
	addr, ok := p.cpuArg(args)
	if !ok {
		return
	}
	if err := p.machine.CPUOffline(addr); err != nil {
		fmt.Fprintf(p.out, "panel: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "cpu%02d offline\n", addr)
}

func (p *Panel) cmdSignal(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(p.out, "panel: usage: signal <cpu>|lru|all\n")
		return
	}

	m := p.machine
	m.ObtainIntLock(nil)
	defer m.ReleaseIntLock(nil)

	switch args[0] {
	case "all":
		m.WakeupCPUsMask(m.started)
	case "lru":
		m.WakeupCPUMask(m.waiting)
	default:
		addr, err := strconv.Atoi(args[0])
		if err != nil || addr < 0 || addr >= m.maxCPU || m.cpus[addr] == nil {
			fmt.Fprintf(p.out, "panel: bad cpu %q\n", args[0])
			return
		}
		m.WakeupCPU(m.cpus[addr])
	}
}

// cmdQuiesce submits a work unit to the lowest online CPU that obtains
// the lock and synchronizes its peers, the same call sequence an
// execution engine uses before a globally-visible update.
func (p *Panel) cmdQuiesce() {
	st := p.machine.Snapshot()
	if len(st.Online) == 0 {
		fmt.Fprintf(p.out, "panel: no CPU online\n")
		return
	}
	initiator := st.Online[0]

	done := make(chan struct{})
	err := p.machine.SubmitWork(initiator, func(cpu *CPUContext) {
		m := p.machine
		m.ObtainIntLock(cpu)
		m.SynchronizeCPUs(cpu)
		m.ReleaseIntLock(cpu)
		close(done)
	})
	if err != nil {
		fmt.Fprintf(p.out, "panel: %v\n", err)
		return
	}

	select {
	case <-done:
		fmt.Fprintf(p.out, "quiesce complete (initiator cpu%02d)\n", initiator)
	case <-time.After(quiesceTimeout):
		fmt.Fprintf(p.out, "panel: quiesce did not complete within %v\n", quiesceTimeout)
	}
}

func (p *Panel) cmdClear(args []string) {
	if len(args) != 2 {
		fmt.Fprintf(p.out, "panel: usage: clear <hexaddr> <bytes>\n")
		return
	}
	addr, err1 := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	n, err2 := strconv.ParseUint(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintf(p.out, "panel: usage: clear <hexaddr> <bytes>\n")
		return
	}
	if err := p.stor.ClearStorage(addr, n); err != nil {
		fmt.Fprintf(p.out, "panel: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "cleared %d bytes at %#x\n", n, addr)
}

func (p *Panel) cpuArg(args []string) (int, bool) {
	if len(args) != 1 {
		fmt.Fprintf(p.out, "panel: expected a cpu address\n")
		return 0, false
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(p.out, "panel: bad cpu %q\n", args[0])
		return 0, false
	}
	return addr, true
}
