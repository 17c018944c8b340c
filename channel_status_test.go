// channel_status_test.go - SCSW to CSW transcoding tests

package main

import (
	"bytes"
	"testing"
)

func sampleSCSW() *SCSW {
	return &SCSW{
		Flag0:    0x40,
		Flag1:    0x01,
		CCWAddr:  [4]byte{0x00, 0x01, 0x02, 0x03},
		UnitStat: 0x0C,
		ChanStat: 0x20,
		Count:    [2]byte{0x12, 0x34},
	}
}

func TestSCSWToCSWLayout(t *testing.T) {
	csw := make([]byte, 8)
	SCSWToCSW(sampleSCSW(), csw)

	// Key/logout byte overlays the high CCW address byte; the low three
	// CCW address bytes, the status pair and the count copy through.
	want := []byte{0x40, 0x01, 0x02, 0x03, 0x0C, 0x20, 0x12, 0x34}
	if !bytes.Equal(csw, want) {
		t.Fatalf("csw = % X, want % X", csw, want)
	}
}

func TestStoreSCSWAsCSWUsesPrefix(t *testing.T) {
	s, err := NewMainStorage(1)
	if err != nil {
		t.Fatal(err)
	}
	cpu := newCPUContext(0)
	cpu.SetPrefix(0x2000)

	if err := StoreSCSWAsCSW(cpu, s, sampleSCSW()); err != nil {
		t.Fatal(err)
	}

	psa, err := s.At(0x2000+PSA_CSW_OFFSET, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x40, 0x01, 0x02, 0x03, 0x0C, 0x20, 0x12, 0x34}
	if !bytes.Equal(psa, want) {
		t.Fatalf("stored csw = % X, want % X", psa, want)
	}
}

func TestStoreSCSWAsCSWHonoursGuestPrefix(t *testing.T) {
	s, err := NewMainStorage(1)
	if err != nil {
		t.Fatal(err)
	}
	cpu := newCPUContext(0)
	cpu.SetPrefix(0x2000)
	guest := cpu.EnterGuest()
	guest.SetPrefix(0x8000)

	if err := StoreSCSWAsCSW(cpu, s, sampleSCSW()); err != nil {
		t.Fatal(err)
	}

	hostPSA, _ := s.At(0x2000+PSA_CSW_OFFSET, 8)
	guestPSA, _ := s.At(0x8000+PSA_CSW_OFFSET, 8)

	if !bytes.Equal(hostPSA, make([]byte, 8)) {
		t.Error("host PSA must be untouched while a guest is active")
	}
	if bytes.Equal(guestPSA, make([]byte, 8)) {
		t.Error("guest PSA must hold the CSW")
	}
}

func TestStoreSCSWAsCSWBounds(t *testing.T) {
	s, err := NewMainStorage(1)
	if err != nil {
		t.Fatal(err)
	}
	cpu := newCPUContext(0)
	cpu.SetPrefix(uint32(s.Size() - 4)) // PSA would run past the end

	if err := StoreSCSWAsCSW(cpu, s, sampleSCSW()); err == nil {
		t.Error("storing past the end of storage should fail")
	}
}
