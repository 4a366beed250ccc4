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

package vmm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/hostarch"
	"tinykernel/pkg/pgcache"
)

// User address space bounds, in bytes and in vpns. These are package
// variables rather than constants so SetUserBounds can repoint them at
// boot, once, before any Table is created; production code must not
// mutate them afterward.
var (
	UserLow     uint64 = 0x00400000
	UserHigh    uint64 = 0xC0000000
	UserLowVPN  uint32 = uint32(UserLow / hostarch.PageSize)
	UserHighVPN uint32 = uint32(UserHigh / hostarch.PageSize)
)

// SetUserBounds repoints the user address space bounds at low/high bytes,
// recomputing the vpn bounds against the current hostarch.PageSize. Callers
// must set hostarch.PageSize first if they intend to change it too.
func SetUserBounds(low, high uint64) {
	UserLow, UserHigh = low, high
	UserLowVPN = uint32(UserLow / hostarch.PageSize)
	UserHighVPN = uint32(UserHigh / hostarch.PageSize)
}

// VMMap is one process's address space: a sorted, disjoint set of vmareas
// covering [UserLowVPN, UserHighVPN). Areas are kept sorted by Start so
// lookups and insertions can binary search rather than scan.
type VMMap struct {
	mu    sync.RWMutex
	areas []*Vmarea
	cache *pgcache.Cache
}

// NewVMMap returns an empty address space backed by cache.
func NewVMMap(cache *pgcache.Cache) *VMMap {
	return &VMMap{cache: cache}
}

// Areas returns a snapshot slice of the current areas, sorted by Start.
// Callers (notably fork's lockstep walk) must not mutate the map while
// iterating the result.
func (m *VMMap) Areas() []*Vmarea {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Vmarea, len(m.areas))
	copy(out, m.areas)
	return out
}

func (m *VMMap) insertLocked(v *Vmarea) error {
	i := sort.Search(len(m.areas), func(i int) bool { return m.areas[i].Start >= v.Start })
	if i > 0 && m.areas[i-1].End > v.Start {
		return fmt.Errorf("vmm: overlaps preceding area [%d,%d)", m.areas[i-1].Start, m.areas[i-1].End)
	}
	if i < len(m.areas) && m.areas[i].Start < v.End {
		return fmt.Errorf("vmm: overlaps following area [%d,%d)", m.areas[i].Start, m.areas[i].End)
	}
	m.areas = append(m.areas, nil)
	copy(m.areas[i+1:], m.areas[i:])
	m.areas[i] = v
	return nil
}

// Insert adds v to the map. v must not overlap any existing area.
func (m *VMMap) Insert(v *Vmarea) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(v)
}

func (m *VMMap) lookupLocked(vpn uint32) *Vmarea {
	i := sort.Search(len(m.areas), func(i int) bool { return m.areas[i].End > vpn })
	if i < len(m.areas) && m.areas[i].Start <= vpn {
		return m.areas[i]
	}
	return nil
}

// Lookup returns the area containing vpn, or nil if vpn is unmapped.
func (m *VMMap) Lookup(vpn uint32) *Vmarea {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(vpn)
}

func (m *VMMap) findRangeLocked(npages uint32, dir Direction) (uint32, error) {
	if dir == DirHiLo {
		hi := UserHighVPN
		for i := len(m.areas) - 1; i >= 0; i-- {
			a := m.areas[i]
			if hi-a.End >= npages {
				return hi - npages, nil
			}
			hi = a.Start
		}
		if hi-UserLowVPN >= npages {
			return hi - npages, nil
		}
		return 0, errno.ENOMEM
	}

	lo := UserLowVPN
	for _, a := range m.areas {
		if a.Start-lo >= npages {
			return lo, nil
		}
		lo = a.End
	}
	if UserHighVPN-lo >= npages {
		return lo, nil
	}
	return 0, errno.ENOMEM
}

// FindRange returns the start vpn of an npages-page gap in the address
// space, searching from the low or high end per dir.
func (m *VMMap) FindRange(npages uint32, dir Direction) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findRangeLocked(npages, dir)
}

// IsRangeEmpty reports whether every page in [start, start+npages) is
// unmapped.
func (m *VMMap) IsRangeEmpty(start, npages uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	end := start + npages
	for _, a := range m.areas {
		if a.Start < end && start < a.End {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m: every area is duplicated and its
// object's reference count bumped, and each new area is registered with
// its object's bottom (a correctness fix over the original's memcpy-based
// clone, which relied on list links it never actually copied — the new
// Vmarea values here are genuinely new members of the bottom object's
// area set and must be registered as such).
func (m *VMMap) Clone() *VMMap {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := NewVMMap(m.cache)
	out.areas = make([]*Vmarea, len(m.areas))
	for i, a := range m.areas {
		na := &Vmarea{
			Start:  a.Start,
			End:    a.End,
			Offset: a.Offset,
			Prot:   a.Prot,
			Flags:  a.Flags,
			Obj:    a.Obj,
		}
		na.Obj.Ref()
		na.Obj.Bottom().AddArea(na)
		out.areas[i] = na
	}
	return out
}

// Map establishes a new mapping of npages pages starting at lopage, or
// wherever FindRange picks if lopage is zero. A non-zero lopage is honored
// as a placement hint regardless of MapFixed: any existing mapping it
// overlaps is unmapped first, exactly as if the caller had called Remove
// itself before Map. vnode may be nil, meaning an anonymous mapping.
func (m *VMMap) Map(vnode Vnode, lopage, npages uint32, prot Prot, flags Flags, offsetPages uint32, dir Direction) (*Vmarea, error) {
	if npages == 0 {
		return nil, errno.EINVAL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if lopage == 0 {
		vpn, err := m.findRangeLocked(npages, dir)
		if err != nil {
			return nil, err
		}
		lopage = vpn
	} else {
		if err := m.removeLocked(lopage, npages); err != nil {
			return nil, err
		}
	}

	var obj *Object
	switch {
	case vnode == nil || flags&MapAnon != 0:
		obj = NewAnonObject(m.cache)
	case flags&MapShared != 0:
		vn, ok := vnode.(interface {
			Mmap(cache *pgcache.Cache) (*Object, error)
		})
		if !ok {
			return nil, fmt.Errorf("vmm: vnode does not support mmap")
		}
		o, err := vn.Mmap(m.cache)
		if err != nil {
			return nil, err
		}
		obj = o
	default: // MapPrivate: copy-on-write over the vnode's shared object
		vn, ok := vnode.(interface {
			Mmap(cache *pgcache.Cache) (*Object, error)
		})
		if !ok {
			return nil, fmt.Errorf("vmm: vnode does not support mmap")
		}
		bottom, err := vn.Mmap(m.cache)
		if err != nil {
			return nil, err
		}
		bottom.Ref()
		obj = NewShadowObject(m.cache, bottom, bottom)
	}

	area := &Vmarea{
		Start:  lopage,
		End:    lopage + npages,
		Offset: offsetPages,
		Prot:   prot,
		Flags:  flags,
		Obj:    obj,
	}
	obj.Bottom().AddArea(area)
	if err := m.insertLocked(area); err != nil {
		obj.Bottom().RemoveArea(area)
		obj.Put()
		return nil, err
	}
	return area, nil
}

// Remove unmaps [lopage, lopage+npages), splitting or shrinking any area
// that straddles the boundary. Translated case-for-case from the
// original vmmap_remove, which special-cases each of the four ways a
// removed range can intersect an existing area.
func (m *VMMap) Remove(lopage, npages uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(lopage, npages)
}

// Destroy releases every area's mmobj reference and empties the map,
// for use during process exit. After Destroy, Areas/Lookup report an
// empty address space rather than areas pointing at already-released
// objects.
func (m *VMMap) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.areas {
		a.Obj.Bottom().RemoveArea(a)
		a.Obj.Put()
	}
	m.areas = nil
}

func (m *VMMap) removeLocked(lopage, npages uint32) error {
	if npages == 0 {
		return nil
	}
	highpage := lopage + npages

	var result []*Vmarea
	for _, a := range m.areas {
		switch {
		case a.End <= lopage || highpage <= a.Start:
			// disjoint, untouched
			result = append(result, a)

		case a.Start < lopage:
			// removed range starts strictly inside a
			if highpage < a.End {
				// hole in the middle: split into head + tail
				tail := &Vmarea{
					Start:  highpage,
					End:    a.End,
					Offset: a.Offset + (highpage - a.Start),
					Prot:   a.Prot,
					Flags:  a.Flags,
					Obj:    a.Obj,
				}
				a.Obj.Ref()
				a.Obj.Bottom().AddArea(tail)
				a.End = lopage
				result = append(result, a, tail)
			} else {
				// shorten the tail off a
				a.End = lopage
				result = append(result, a)
			}

		default:
			// removed range starts at or before a.Start
			if highpage < a.End {
				// advance a's head
				a.Offset += highpage - a.Start
				a.Start = highpage
				result = append(result, a)
			} else {
				// a is fully covered
				a.Obj.Bottom().RemoveArea(a)
				a.Obj.Put()
			}
		}
	}
	m.areas = result
	return nil
}

// io walks buf across whatever pages [vaddr, vaddr+len(buf)) covers,
// faulting in each and copying to or from it. Callers are trusted; it
// does not check the area's protection against the direction of the
// copy, only that the address is mapped at all.
func (m *VMMap) io(ctx context.Context, vaddr uint64, buf []byte, write bool) error {
	pageSize := hostarch.PageSize
	remaining := buf
	addr := vaddr
	for len(remaining) > 0 {
		vpn := uint32(addr / pageSize)
		off := uint32(addr % pageSize)
		n := uint32(pageSize) - off
		if uint64(n) > uint64(len(remaining)) {
			n = uint32(len(remaining))
		}

		m.mu.RLock()
		area := m.lookupLocked(vpn)
		m.mu.RUnlock()
		if area == nil {
			return errno.EFAULT
		}

		pageIndex := vpn - area.Start + area.Offset
		frame, err := area.Obj.LookupPage(ctx, pageIndex, write)
		if err != nil {
			return err
		}
		if write {
			copy(frame.Data[off:off+n], remaining[:n])
			area.Obj.DirtyPage(frame)
		} else {
			copy(remaining[:n], frame.Data[off:off+n])
		}

		remaining = remaining[n:]
		addr += uint64(n)
	}
	return nil
}

// Read copies len(dst) bytes starting at vaddr out of the address space.
func (m *VMMap) Read(ctx context.Context, vaddr uint64, dst []byte) error {
	return m.io(ctx, vaddr, dst, false)
}

// Write copies src into the address space starting at vaddr.
func (m *VMMap) Write(ctx context.Context, vaddr uint64, src []byte) error {
	return m.io(ctx, vaddr, src, true)
}
