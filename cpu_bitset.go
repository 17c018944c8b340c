// cpu_bitset.go - Fixed-capacity CPU membership bitset

package main

import (
	"fmt"
	"math/bits"
	"strings"
)

// MAX_CPU_ENGINES is the highest number of CPU engines one machine can
// configure. All membership masks are sized to this capacity.
const MAX_CPU_ENGINES = 64

// CPUSet is a membership mask over CPU addresses 0..MAX_CPU_ENGINES-1.
// All bit arithmetic on CPU masks lives in this file; everything else
// uses the named operations.
type CPUSet uint64

// CPUBit returns the single-member set for a CPU address.
func CPUBit(addr int) CPUSet {
	return CPUSet(1) << uint(addr)
}

// Set adds a CPU address to the set.
func (s *CPUSet) Set(addr int) {
	*s |= CPUBit(addr)
}

// Clear removes a CPU address from the set.
func (s *CPUSet) Clear(addr int) {
	*s &^= CPUBit(addr)
}

// Has reports whether a CPU address is a member.
func (s CPUSet) Has(addr int) bool {
	return s&CPUBit(addr) != 0
}

// IsEmpty reports whether the set has no members.
func (s CPUSet) IsEmpty() bool {
	return s == 0
}

// Count returns the number of members.
func (s CPUSet) Count() int {
	return bits.OnesCount64(uint64(s))
}

// SubsetOf reports whether every member of s is also a member of t.
func (s CPUSet) SubsetOf(t CPUSet) bool {
	return s&^t == 0
}

// Members returns the member CPU addresses in ascending order.
func (s CPUSet) Members() []int {
	if s == 0 {
		return nil
	}
	members := make([]int, 0, s.Count())
	for w := uint64(s); w != 0; w &= w - 1 {
		members = append(members, bits.TrailingZeros64(w))
	}
	return members
}

// String renders the set as "{0,2,5}" for diagnostics.
func (s CPUSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, addr := range s.Members() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", addr)
	}
	b.WriteByte('}')
	return b.String()
}
