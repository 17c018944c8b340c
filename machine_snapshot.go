// machine_snapshot.go - JSON status snapshot of the coordination state

package main

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"
)

// CPUStatusInfo is one CPU's coordination state at snapshot time.
type CPUStatusInfo struct {
	Addr        int   `json:"cpu"`
	Waiting     bool  `json:"waiting"`
	SyncTarget  bool  `json:"syncTarget"`
	IntPending  bool  `json:"intPending"`
	AtSyncPoint bool  `json:"atSyncPoint"`
	Guest       bool  `json:"guest"`
	WaitTotalNs int64 `json:"waitTotalNs"`
}

// MachineStatus is a point-in-time snapshot of the machine coordination
// state, for the panel and for diagnostics.
type MachineStatus struct {
	Online      []int           `json:"online"`
	Waiting     []int           `json:"waiting"`
	SyncTargets []int           `json:"syncTargets"`
	Syncing     bool            `json:"syncing"`
	LockOwner   string          `json:"lockOwner"`
	CPUs        []CPUStatusInfo `json:"cpus"`
}

// Snapshot captures the coordination state. The raw mutex is taken as a
// read-only peek rather than ObtainIntLock, so the report shows the true
// recorded owner instead of this thread.
func (m *MachineState) Snapshot() *MachineStatus {
	m.intLock.Lock()
	defer m.intLock.Unlock()

	st := &MachineStatus{
		Online:      m.started.Members(),
		Waiting:     m.waiting.Members(),
		SyncTargets: m.syncTargets.Members(),
		Syncing:     m.syncing,
		LockOwner:   ownerString(m.lockOwner),
	}
	for _, addr := range m.started.Members() {
		c := m.cpus[addr]
		st.CPUs = append(st.CPUs, CPUStatusInfo{
			Addr:        addr,
			Waiting:     m.waiting.Has(addr),
			SyncTarget:  m.syncTargets.Has(addr),
			IntPending:  c.IntPending(),
			AtSyncPoint: c.atSyncPoint.Load(),
			Guest:       c.guest != nil,
			WaitTotalNs: int64(c.waitTotal),
		})
	}
	return st
}

// MarshalStatus renders a snapshot as JSON.
func MarshalStatus(st *MachineStatus) ([]byte, error) {
	return sonnet.Marshal(st)
}

func ownerString(owner int16) string {
	switch owner {
	case lockOwnerNone:
		return "none"
	case lockOwnerOther:
		return "other"
	default:
		return fmt.Sprintf("cpu%02d", owner)
	}
}
