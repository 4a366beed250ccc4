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

package proc

import (
	"tinykernel/pkg/errno"
	"tinykernel/pkg/hostarch"
	"tinykernel/pkg/pgtable"
	"tinykernel/pkg/vfs"
	"tinykernel/pkg/vmm"
)

// Mmap validates and installs a new mapping in p's address space. addr
// and length are byte values; addr of zero lets the map choose a
// location, and a non-zero addr is honored as a placement hint (any
// mapping it overlaps is displaced) whether or not MapFixed is set —
// MapFixed only adds the requirement that addr's page fall inside the
// user address space. For a file-backed mapping (flags without MapAnon),
// fd is resolved through p.Files and checked against prot: the file must
// be open for read, and a shared writable mapping additionally requires
// the file be open for write. Validation happens in a fixed order —
// length, then the shared/private flag combination, then alignment, then (for a
// fixed address) bounds, then the fd's access mode — so that a bad call
// always fails with the same errno regardless of what else about the
// request might also be wrong.
func (p *Process) Mmap(fd int, addr, length uint64, prot vmm.Prot, flags vmm.Flags, offset uint64) (uint64, error) {
	if length == 0 {
		return 0, errno.EINVAL
	}
	if flags&vmm.MapShared != 0 && flags&vmm.MapPrivate != 0 {
		return 0, errno.EINVAL
	}
	if flags&vmm.MapShared == 0 && flags&vmm.MapPrivate == 0 {
		return 0, errno.EINVAL
	}
	if !hostarch.Addr(offset).IsPageAligned() || !hostarch.Addr(addr).IsPageAligned() {
		return 0, errno.EINVAL
	}

	npages := hostarch.PageCount(length)
	lopage := hostarch.VPN(hostarch.Addr(addr))
	if flags&vmm.MapFixed != 0 {
		if lopage < vmm.UserLowVPN || lopage+npages > vmm.UserHighVPN {
			return 0, errno.EINVAL
		}
	}

	var vnode vmm.Vnode
	if flags&vmm.MapAnon == 0 {
		f, err := p.Files.Get(fd)
		if err != nil {
			return 0, err
		}
		if f.Mode&vfs.ModeRead == 0 {
			return 0, errno.EACCES
		}
		if flags&vmm.MapShared != 0 && prot.Has(vmm.ProtWrite) && f.Mode&vfs.ModeWrite == 0 {
			return 0, errno.EACCES
		}
		vnode = f.Vnode
	}

	area, err := p.Map.Map(vnode, lopage, npages, prot, flags, hostarch.VPN(hostarch.Addr(offset)), vmm.DirLoHi)
	if err != nil {
		return 0, err
	}
	p.PTab.UnmapRange(area.Start, area.End)
	pgtable.FlushRange(area.Start, area.Len())
	return uint64(hostarch.PageAddr(area.Start)), nil
}

// Munmap removes the mapping covering [addr, addr+length).
func (p *Process) Munmap(addr, length uint64) error {
	if length == 0 || !hostarch.Addr(addr).IsPageAligned() {
		return errno.EINVAL
	}
	npages := hostarch.PageCount(length)
	lopage := hostarch.VPN(hostarch.Addr(addr))
	if err := p.Map.Remove(lopage, npages); err != nil {
		return err
	}
	p.PTab.UnmapRange(lopage, lopage+npages)
	pgtable.FlushRange(lopage, npages)
	return nil
}

// Brk sets the program break to addr and returns the resulting break.
// addr of zero is a query: it returns the current break without change.
// The break is kept in whole pages: a non-zero addr that is not
// page-aligned fails with EINVAL rather than being rounded up.
// Shrinking unmaps the pages given back; growing only reserves the
// range — pages are demand-zeroed on first fault via the anonymous
// object already backing the heap area, exactly like any other anon
// mapping.
func (p *Process) Brk(addr uint64) (uint64, error) {
	if addr == 0 {
		p.mu.Lock()
		defer p.mu.Unlock()
		return uint64(hostarch.PageAddr(p.brk)), nil
	}
	if !hostarch.Addr(addr).IsPageAligned() {
		return 0, errno.EINVAL
	}
	newBrk := hostarch.VPN(hostarch.Addr(addr))
	if newBrk < vmm.UserLowVPN || newBrk > vmm.UserHighVPN {
		return 0, errno.ENOMEM
	}

	p.mu.Lock()
	cur := p.brk
	p.mu.Unlock()

	switch {
	case newBrk == cur:
		return addr, nil
	case newBrk > cur:
		if !p.Map.IsRangeEmpty(cur, newBrk-cur) {
			return 0, errno.ENOMEM
		}
		area := p.Map.Lookup(cur - 1)
		if area != nil && area.Flags&vmm.MapAnon != 0 && area.End == cur {
			// Grow the existing heap area in place: same object, just a
			// wider window, so no reference-count churn is needed.
			area.End = newBrk
		} else {
			_, err := p.Map.Map(nil, cur, newBrk-cur, vmm.ProtRead|vmm.ProtWrite, vmm.MapPrivate|vmm.MapAnon, 0, vmm.DirLoHi)
			if err != nil {
				return 0, err
			}
		}
	default:
		if err := p.Map.Remove(newBrk, cur-newBrk); err != nil {
			return 0, err
		}
		p.PTab.UnmapRange(newBrk, cur)
		pgtable.FlushRange(newBrk, cur-newBrk)
	}

	p.mu.Lock()
	p.brk = newBrk
	p.mu.Unlock()
	return addr, nil
}
