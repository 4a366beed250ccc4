// Copyright 2026 The tinykernel Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pgtable stands in for the excluded hardware page tables and
// TLB: a per-process map from virtual page number to the resident frame
// backing it, plus the map/unmap/flush calls the fault path and the
// mmap/munmap/brk syscalls depend on.
package pgtable

import (
	"sync"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/pgcache"
)

// Flags mirrors the hardware PTE bits this core cares about.
type Flags uint8

const (
	Present Flags = 1 << iota
	User
	Writable
)

type entry struct {
	frame *pgcache.Frame
	flags Flags
}

// Dir is one process's page directory.
type Dir struct {
	mu      sync.Mutex
	entries map[uint32]entry
	limit   int
}

// NewDir returns an empty page directory.
func NewDir() *Dir {
	return &Dir{entries: make(map[uint32]entry)}
}

// SetLimit caps the number of resident mappings this directory may hold;
// a further Map beyond the limit reports ENOMEM, simulating exhaustion of
// page-table memory. A limit of zero (the default) means unlimited.
func (d *Dir) SetLimit(n int) {
	d.mu.Lock()
	d.limit = n
	d.mu.Unlock()
}

// Map installs a PTE for vpn pointing at frame with the given flags. It
// fails with ENOMEM if doing so would exceed a configured limit.
func (d *Dir) Map(vpn uint32, frame *pgcache.Frame, flags Flags) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[vpn]; !exists && d.limit > 0 && len(d.entries) >= d.limit {
		return errno.ENOMEM
	}
	d.entries[vpn] = entry{frame: frame, flags: flags}
	return nil
}

// Lookup returns the frame and flags mapped at vpn, if any.
func (d *Dir) Lookup(vpn uint32) (*pgcache.Frame, Flags, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[vpn]
	return e.frame, e.flags, ok
}

// UnmapRange removes every PTE in [lo, hi).
func (d *Dir) UnmapRange(lo, hi uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for vpn := range d.entries {
		if vpn >= lo && vpn < hi {
			delete(d.entries, vpn)
		}
	}
}

// Destroy releases every PTE in the directory. It is called once, when
// the owning process is finally reaped.
func (d *Dir) Destroy() {
	d.mu.Lock()
	d.entries = nil
	d.mu.Unlock()
}

// FlushRange and FlushAll model TLB invalidation. This simulated hardware
// keeps no address-translation cache distinct from the directory itself,
// so both are no-ops; they exist so call sites match the real contract
// named in the design and can be swapped for a real implementation later.
func FlushRange(vpn uint32, npages uint32) {}
func FlushAll()                            {}
