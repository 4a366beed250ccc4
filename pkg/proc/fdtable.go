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
	"sync"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/vfs"
)

// NumFDs is the number of descriptor slots in a process's open-file
// table, mirroring the original kernel's fixed-size p_files array.
const NumFDs = 32

// FDTable is a process's fixed-size table of open file descriptors. Slot
// i holds the File installed at descriptor i, or nil.
type FDTable struct {
	mu    sync.Mutex
	files [NumFDs]*vfs.File
}

// NewFDTable returns an empty descriptor table.
func NewFDTable() *FDTable {
	return &FDTable{}
}

// Install places f in the lowest free slot and returns its descriptor
// number, or EMFILE if the table is full.
func (t *FDTable) Install(f *vfs.File) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.files {
		if existing == nil {
			t.files[i] = f
			return i, nil
		}
	}
	return -1, errno.EMFILE
}

// Get returns the file installed at fd, or EBADF if fd is out of range or
// unused.
func (t *FDTable) Get(fd int) (*vfs.File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= NumFDs || t.files[fd] == nil {
		return nil, errno.EBADF
	}
	return t.files[fd], nil
}

// Close releases fd, closing the underlying file if this was its last
// reference.
func (t *FDTable) Close(fd int) error {
	t.mu.Lock()
	if fd < 0 || fd >= NumFDs || t.files[fd] == nil {
		t.mu.Unlock()
		return errno.EBADF
	}
	f := t.files[fd]
	t.files[fd] = nil
	t.mu.Unlock()
	f.Close()
	return nil
}

// CloseAll closes every occupied slot, for use during process exit.
func (t *FDTable) CloseAll() {
	t.mu.Lock()
	files := t.files
	t.files = [NumFDs]*vfs.File{}
	t.mu.Unlock()
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// Fork returns a duplicate of t: every occupied slot points at the same
// File with its reference count bumped, matching fork(2)'s
// shared-file-description semantics.
func (t *FDTable) Fork() *FDTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := &FDTable{}
	for i, f := range t.files {
		if f != nil {
			out.files[i] = f.Dup()
		}
	}
	return out
}
