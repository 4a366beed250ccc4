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

// Package vmm implements the address-space core: memory objects (mmobj),
// virtual memory areas, the per-process address-space map, and the
// page-fault resolution path.
package vmm

import (
	"sync"

	"tinykernel/pkg/klog"
	"tinykernel/pkg/pgcache"
)

var log = klog.New("vmm")

// Kind discriminates the three mmobj variants. Dispatch on Kind (rather
// than an interface per variant) keeps the "bottom" discriminant and the
// release rule checkable exhaustively in one place.
type Kind int

const (
	KindAnon Kind = iota
	KindFile
	KindShadow
)

func (k Kind) String() string {
	switch k {
	case KindAnon:
		return "anon"
	case KindFile:
		return "file"
	case KindShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// Vnode is the minimal contract a file-backed object needs from its
// backing store: page-granular reads and writes, and a hook to drop the
// mmobj's hold on the vnode once its last reference is released.
type Vnode interface {
	ReadPage(index uint32, dst []byte) error
	WritePage(index uint32, src []byte) error
	DecRef()
}

// Object is a memory object: a reference-counted, polymorphic source of
// page contents. See Kind for the three variants.
type Object struct {
	mu       sync.Mutex
	kind     Kind
	cache    *pgcache.Cache
	refcount int
	resident map[uint32]*pgcache.Frame

	vnode Vnode // KindFile only

	shadowed *Object // KindShadow only: the object this one overlays
	bottom   *Object // KindShadow only: the bottom-most non-shadow ancestor

	vmareas map[*Vmarea]struct{} // non-shadow only: areas whose chain bottoms here
}

func newObject(kind Kind, cache *pgcache.Cache) *Object {
	o := &Object{
		kind:     kind,
		cache:    cache,
		refcount: 1,
		resident: make(map[uint32]*pgcache.Frame),
	}
	if kind != KindShadow {
		o.vmareas = make(map[*Vmarea]struct{})
	}
	return o
}

// NewAnonObject returns a fresh anonymous object with a reference count
// of one, for the caller to hand to exactly one vmarea.
func NewAnonObject(cache *pgcache.Cache) *Object {
	return newObject(KindAnon, cache)
}

// NewFileObject returns a fresh file-backed object wrapping vn, with a
// reference count of one. Vnode implementations should call this at most
// once per vnode and Ref() the result on subsequent mmap calls, so that
// every mapping of the same vnode shares the same pages.
func NewFileObject(cache *pgcache.Cache, vn Vnode) *Object {
	o := newObject(KindFile, cache)
	o.vnode = vn
	return o
}

// NewShadowObject returns a fresh shadow object overlaying shadowed, whose
// chain bottoms at bottom, with a reference count of one. The caller is
// responsible for having already accounted for the reference this shadow
// holds on shadowed: VMMap.Map takes a fresh Ref() for it, while
// proc.Process.Fork transfers a reference that VMMap.Clone already took.
func NewShadowObject(cache *pgcache.Cache, shadowed, bottom *Object) *Object {
	o := newObject(KindShadow, cache)
	o.shadowed = shadowed
	o.bottom = bottom
	return o
}

// Kind reports which variant this object is.
func (o *Object) Kind() Kind {
	return o.kind
}

// Bottom returns the bottom-most non-shadow ancestor: itself for
// non-shadow objects, or the terminal object of the shadow chain
// otherwise.
func (o *Object) Bottom() *Object {
	if o.kind == KindShadow {
		return o.bottom
	}
	return o
}

// AddArea registers v as an area whose chain bottoms at o. o must be a
// non-shadow object (the bottom of some chain).
func (o *Object) AddArea(v *Vmarea) {
	if o.kind == KindShadow {
		panic("vmm: AddArea on a shadow object")
	}
	o.mu.Lock()
	o.vmareas[v] = struct{}{}
	o.mu.Unlock()
}

// RemoveArea undoes AddArea.
func (o *Object) RemoveArea(v *Vmarea) {
	if o.kind == KindShadow {
		panic("vmm: RemoveArea on a shadow object")
	}
	o.mu.Lock()
	delete(o.vmareas, v)
	o.mu.Unlock()
}

// Ref adds one reference to o.
func (o *Object) Ref() {
	o.mu.Lock()
	o.refcount++
	o.mu.Unlock()
}

// RefCount returns the current reference count, for tests and invariant
// checks.
func (o *Object) RefCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refcount
}

// ResidentCount returns the number of pages currently resident in the
// cache and attributed to o.
func (o *Object) ResidentCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.resident)
}

// Put releases one reference to o. When the release rule triggers
// (refcount == resident_pages for anonymous and shadow objects; refcount
// == 0 for file-backed objects), o's resident pages are unpinned and
// freed and, for a shadow, its reference on shadowed is released in turn.
func (o *Object) Put() {
	o.mu.Lock()
	if o.refcount <= 0 {
		panic("vmm: Put on non-positive refcount")
	}
	o.refcount--

	if o.kind == KindFile {
		release := o.refcount == 0
		var frames []*pgcache.Frame
		if release {
			for _, f := range o.resident {
				frames = append(frames, f)
			}
			o.resident = nil
		}
		o.mu.Unlock()
		for _, f := range frames {
			o.cache.Free(f)
		}
		if release {
			o.vnode.DecRef()
		}
		return
	}

	if o.refcount != len(o.resident) {
		o.mu.Unlock()
		return
	}

	frames := make([]*pgcache.Frame, 0, len(o.resident))
	for _, f := range o.resident {
		frames = append(frames, f)
	}
	shadowed := o.shadowed
	o.resident = nil
	o.mu.Unlock()

	log.Debugf("releasing %s object: unpinning %d resident pages", o.kind, len(frames))
	for _, f := range frames {
		o.cache.Unpin(f)
		o.cache.Free(f)
	}

	if o.kind == KindShadow {
		shadowed.Put()
	}
}

func (o *Object) trackResident(index uint32, f *pgcache.Frame) {
	o.mu.Lock()
	o.resident[index] = f
	o.mu.Unlock()
}
