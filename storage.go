// storage.go - Main storage with page-granular fast clearing

/*
(c) 2025 - 2026 The Meridian/390 Project
https://github.com/meridian390/MeridianEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
)

const (
	// STOR_PAGE_SIZE is the architectural page size used by the clearing
	// fast path and the PSA layout.
	STOR_PAGE_SIZE = 4096

	storPageMask = STOR_PAGE_SIZE - 1

	ONE_MEGABYTE = 1024 * 1024
)

// MainStorage is the machine's main storage: one contiguous block, so
// clears and slices stay cache-friendly. It is stateless with respect
// to concurrency; callers that share visible ranges hold the machine
// interrupt lock.
type MainStorage struct {
	mem []byte
}

// NewMainStorage allocates main storage of the given size in megabytes.
func NewMainStorage(sizeMB int) (*MainStorage, error) {
	if sizeMB < 1 {
		return nil, fmt.Errorf("storage: size %dMB too small", sizeMB)
	}
	return &MainStorage{mem: make([]byte, sizeMB*ONE_MEGABYTE)}, nil
}

// Size returns the storage size in bytes.
func (s *MainStorage) Size() uint64 {
	return uint64(len(s.mem))
}

// At returns the n-byte slice of storage starting at addr.
func (s *MainStorage) At(addr, n uint64) ([]byte, error) {
	if addr+n > uint64(len(s.mem)) || addr+n < addr {
		return nil, fmt.Errorf("storage: range %#x+%d exceeds %#x", addr, n, len(s.mem))
	}
	return s.mem[addr : addr+n], nil
}

// RoundToHostPageSize rounds n up to a multiple of the host page size.
func RoundToHostPageSize(n uint64) uint64 {
	factor := uint64(os.Getpagesize()) - 1
	return (n + factor) &^ factor
}

// ClearStorage zeroes n bytes of storage starting at addr. Splits the
// range into an unaligned head, whole pages and a tail so the bulk of a
// large clear runs page-at-a-time.
func (s *MainStorage) ClearStorage(addr, n uint64) error {
	if _, err := s.At(addr, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	// Head fragment up to the next page boundary.
	if x := addr & storPageMask; x != 0 {
		a := uint64(STOR_PAGE_SIZE) - x
		if a > n {
			a = n
		}
		clearRange(s.mem[addr : addr+a])
		addr += a
		n -= a
		if n == 0 {
			return nil
		}
	}

	// Whole pages.
	for n >= STOR_PAGE_SIZE {
		s.clearPage(addr)
		addr += STOR_PAGE_SIZE
		n -= STOR_PAGE_SIZE
	}

	// Tail fragment.
	if n > 0 {
		clearRange(s.mem[addr : addr+n])
	}
	return nil
}

// ClearPage zeroes the 4K page at addr, which must be page-aligned.
func (s *MainStorage) ClearPage(addr uint64) error {
	if addr&storPageMask != 0 {
		return fmt.Errorf("storage: clear page at unaligned %#x", addr)
	}
	if _, err := s.At(addr, STOR_PAGE_SIZE); err != nil {
		return err
	}
	s.clearPage(addr)
	return nil
}

func (s *MainStorage) clearPage(addr uint64) {
	clearRange(s.mem[addr : addr+STOR_PAGE_SIZE])
}

// clearRange zeroes a byte range. The range form compiles down to the
// runtime's bulk memclr.
func clearRange(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
