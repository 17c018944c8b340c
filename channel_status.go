// channel_status.go - SCSW to CSW transcoding for legacy channel support

package main

// PSA_CSW_OFFSET is where the channel status word lives in the prefixed
// storage area.
const PSA_CSW_OFFSET = 0x40

// SCSW is the subchannel status word as kept by the channel subsystem.
type SCSW struct {
	Flag0, Flag1, Flag2, Flag3 byte
	CCWAddr                    [4]byte // big-endian CCW address
	UnitStat, ChanStat         byte
	Count                      [2]byte // big-endian residual count
}

// SCSWToCSW converts an SCSW to the 8-byte legacy channel status word:
// the CCW address, unit/channel status and count are copied through, then
// the key/logout byte overlays the high CCW address byte.
func SCSWToCSW(scsw *SCSW, csw []byte) {
	_ = csw[7]
	copy(csw[0:4], scsw.CCWAddr[:])
	csw[4] = scsw.UnitStat
	csw[5] = scsw.ChanStat
	copy(csw[6:8], scsw.Count[:])
	csw[0] = scsw.Flag0
}

// StoreSCSWAsCSW stores the SCSW as a CSW in the calling CPU's prefixed
// storage area. When the CPU runs a nested context the guest's prefix
// establishes the PSA. Callers hold the machine interrupt lock; this is
// pure storage transcoding with no protocol state of its own. Storage
// key reference/change updates remain with the caller.
func StoreSCSWAsCSW(cpu *CPUContext, stor *MainStorage, scsw *SCSW) error {
	pfx := cpu.prefix
	if g := cpu.guest; g != nil {
		pfx = g.prefix
	}

	psa, err := stor.At(uint64(pfx)+PSA_CSW_OFFSET, 8)
	if err != nil {
		return err
	}
	SCSWToCSW(scsw, psa)
	return nil
}
