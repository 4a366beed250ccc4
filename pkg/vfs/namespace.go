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

package vfs

import (
	"sync"

	"tinykernel/pkg/klog"
)

var log = klog.New("vfs")

// Mode selects the access an open file grants.
type Mode uint8

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeCreate
)

// Namespace is a flat, in-memory directory of vnodes: no path separators,
// no directories, just names to files. Good enough to stand in for a real
// filesystem in exercises that only care about mmap and page I/O.
type Namespace struct {
	mu       sync.Mutex
	pageSize int
	vnodes   map[string]*MemVnode
}

// NewNamespace returns an empty namespace whose files use pageSize-byte
// pages.
func NewNamespace(pageSize int) *Namespace {
	return &Namespace{pageSize: pageSize, vnodes: make(map[string]*MemVnode)}
}

// File is an open file description: an independent seek position over a
// shared vnode, itself reference-counted so a descriptor table can dup or
// fork an entry without opening the vnode again.
type File struct {
	Vnode *MemVnode
	Mode  Mode

	mu       sync.Mutex
	pos      int64
	refcount int
}

// Open resolves name to a File. With ModeCreate set, a missing vnode is
// created with a fresh reference; without it, a missing vnode is
// ErrNotFound. Every successful Open adds one reference to the
// underlying vnode, released when the returned File's reference count
// (see Dup) reaches zero via Close.
func (ns *Namespace) Open(name string, mode Mode) (*File, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	vn, ok := ns.vnodes[name]
	if !ok {
		if mode&ModeCreate == 0 {
			return nil, ErrNotFound
		}
		vn = newVnode(name, ns.pageSize)
		ns.vnodes[name] = vn
		log.Debugf("created vnode %q", name)
	} else {
		vn.Ref()
	}
	return &File{Vnode: vn, Mode: mode, refcount: 1}, nil
}

// Dup adds a reference to f, for a second owner (a duplicated or forked
// file descriptor table entry) sharing the same open file description,
// and returns f itself.
func (f *File) Dup() *File {
	f.mu.Lock()
	f.refcount++
	f.mu.Unlock()
	return f
}

// Close releases one reference to f, dropping its hold on the underlying
// vnode once the last reference is gone.
func (f *File) Close() {
	f.mu.Lock()
	f.refcount--
	release := f.refcount == 0
	f.mu.Unlock()
	if release {
		f.Vnode.DecRef()
	}
}
