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

// Package vfs is the minimal filesystem named as an external collaborator
// in the address-space design: a flat, in-memory namespace of vnodes good
// enough to exercise file-backed and shared mmap without pulling in a
// real filesystem stack.
package vfs

import (
	"sync"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/pgcache"
	"tinykernel/pkg/vmm"
)

// MemVnode is an in-memory file: a growable slice of pages plus a
// reference count. Its mmobj is created lazily on first Mmap and cached,
// so that every shared mapping of the same vnode sees the same pages
// (mirroring vnode->vn_mmobj in the original source).
type MemVnode struct {
	mu       sync.Mutex
	name     string
	pages    [][]byte
	pageSize int
	refcount int
	mmobj    *vmm.Object
}

// newVnode returns a fresh vnode with one reference, empty.
func newVnode(name string, pageSize int) *MemVnode {
	return &MemVnode{name: name, pageSize: pageSize, refcount: 1}
}

// Ref adds one reference to v.
func (v *MemVnode) Ref() {
	v.mu.Lock()
	v.refcount++
	v.mu.Unlock()
}

// DecRef releases one reference to v, satisfying vmm.Vnode. The backing
// pages are dropped once the count reaches zero.
func (v *MemVnode) DecRef() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refcount--
	if v.refcount == 0 {
		v.pages = nil
	}
}

// Truncate grows or shrinks the vnode to exactly npages pages, zero-filling
// any newly added pages.
func (v *MemVnode) Truncate(npages int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for len(v.pages) < npages {
		v.pages = append(v.pages, make([]byte, v.pageSize))
	}
	v.pages = v.pages[:npages]
}

// ReadPage copies page index into dst, satisfying vmm.Vnode. Reading past
// the current length yields a zero page, matching sparse-file semantics.
func (v *MemVnode) ReadPage(index uint32, dst []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if int(index) >= len(v.pages) {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, v.pages[index])
	return nil
}

// WritePage copies src into page index, satisfying vmm.Vnode. The vnode
// grows to accommodate the write if necessary.
func (v *MemVnode) WritePage(index uint32, src []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for len(v.pages) <= int(index) {
		v.pages = append(v.pages, make([]byte, v.pageSize))
	}
	copy(v.pages[index], src)
	return nil
}

// Mmap returns the vnode's shared memory object, creating it on first
// call and Ref()ing it on every subsequent call so that every shared
// mapping — and every private mapping's shadow chain — bottoms out on the
// same underlying pages. Creating the object takes one reference on v,
// which the object gives back through DecRef when it is released.
func (v *MemVnode) Mmap(cache *pgcache.Cache) (*vmm.Object, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mmobj == nil {
		v.refcount++
		v.mmobj = vmm.NewFileObject(cache, v)
		return v.mmobj, nil
	}
	v.mmobj.Ref()
	return v.mmobj, nil
}

// Errors returned by the namespace below.
var (
	ErrNotFound = errno.ENOENT
	ErrExists   = errno.EEXIST
)
