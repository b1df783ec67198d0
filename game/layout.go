// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

// Region of the address space where patch code can be loaded.  End is
// exclusive, and may be 1<<32.
type Region struct {
	Name  string
	Start uint32
	End   uint64
}

// Contains checks that addr and the size bytes starting at it are all inside
// the region.
func (r Region) Contains(addr uint32, size uint32) bool {
	return addr >= r.Start && uint64(addr) < r.End && uint64(addr)+uint64(size) <= r.End
}

// Layout lists the loadable regions of an executable's address space.
type Layout []Region

// Contains finds the region which contains the size bytes starting at addr.
func (l Layout) Contains(addr uint32, size uint32) (Region, bool) {
	for _, r := range l {
		if r.Contains(addr, size) {
			return r, true
		}
	}
	return Region{}, false
}

// Cached, physically contiguous main memory of the Wii.
var wiiLayout = Layout{
	{"MEM1", 0x80000000, 0x81800000},
	{"MEM2", 0x90000000, 0x94000000},
}
