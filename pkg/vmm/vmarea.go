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

// Prot is a bitset of allowed accesses on a vmarea.
type Prot uint8

const (
	ProtNone  Prot = 0
	ProtRead  Prot = 1 << iota
	ProtWrite
	ProtExec
)

// Has reports whether p grants every bit set in want.
func (p Prot) Has(want Prot) bool {
	return p&want == want
}

// Flags describes a vmarea's sharing policy and mmap-time hints.
type Flags uint8

const (
	MapShared Flags = 1 << iota
	MapPrivate
	MapFixed
	MapAnon
)

// Direction selects which end of the address space find_range searches
// from.
type Direction int

const (
	DirLoHi Direction = iota
	DirHiLo
)

// Vmarea is one contiguous run of virtual pages sharing a protection, a
// sharing policy, and a window into one mmobj. It is exclusively owned by
// one VMMap.
type Vmarea struct {
	Start  uint32 // first vpn, inclusive
	End    uint32 // last vpn, exclusive
	Offset uint32 // first page index within Obj's window
	Prot   Prot
	Flags  Flags
	Obj    *Object
}

// Len reports the number of pages this area covers.
func (v *Vmarea) Len() uint32 {
	return v.End - v.Start
}

// Contains reports whether vpn falls within this area.
func (v *Vmarea) Contains(vpn uint32) bool {
	return v.Start <= vpn && vpn < v.End
}
