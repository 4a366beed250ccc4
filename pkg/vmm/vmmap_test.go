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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tinykernel/pkg/pgcache"
)

func newTestMap() *VMMap {
	return NewVMMap(pgcache.New(16))
}

func TestMapThenLookup(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, 0, 4, ProtRead|ProtWrite, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got := m.Lookup(area.Start); got != area {
		t.Fatalf("Lookup(%d) = %v, want %v", area.Start, got, area)
	}
	if got := m.Lookup(area.End); got != nil {
		t.Fatalf("Lookup(%d) (one past the end) = %v, want nil", area.End, got)
	}
	if got := m.Lookup(area.Start - 1); got != nil {
		t.Fatalf("Lookup(%d) (one before the start) = %v, want nil", area.Start-1, got)
	}
}

func TestFindRangeLoHiPrefersFirstGap(t *testing.T) {
	m := newTestMap()
	first, err := m.Map(nil, UserLowVPN, 4, ProtRead, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	// Leave a gap, then place a second area.
	if _, err := m.Map(nil, first.End+10, 4, ProtRead, MapPrivate|MapAnon, 0, DirLoHi); err != nil {
		t.Fatalf("Map: %v", err)
	}

	vpn, err := m.FindRange(2, DirLoHi)
	if err != nil {
		t.Fatalf("FindRange: %v", err)
	}
	if vpn != first.End {
		t.Fatalf("FindRange(LoHi) = %d, want the gap right after the first area (%d)", vpn, first.End)
	}
}

func TestFindRangeHiLoStartsFromTop(t *testing.T) {
	m := newTestMap()
	vpn, err := m.FindRange(4, DirHiLo)
	if err != nil {
		t.Fatalf("FindRange: %v", err)
	}
	if want := UserHighVPN - 4; vpn != want {
		t.Fatalf("FindRange(HiLo) on an empty map = %d, want %d", vpn, want)
	}
}

func TestInsertRejectsOverlap(t *testing.T) {
	m := newTestMap()
	if _, err := m.Map(nil, UserLowVPN, 4, ProtRead, MapPrivate|MapAnon, 0, DirLoHi); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := m.Insert(&Vmarea{Start: UserLowVPN + 1, End: UserLowVPN + 2, Obj: NewAnonObject(pgcache.New(16))}); err == nil {
		t.Fatal("Insert of an overlapping area did not fail")
	}
}

func TestRemoveSplitsMiddle(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, UserLowVPN, 10, ProtRead|ProtWrite, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	obj := area.Obj
	before := obj.RefCount()

	// Punch a hole in the middle: [start+3, start+6).
	if err := m.Remove(area.Start+3, 3); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if got := m.Lookup(area.Start + 1); got == nil {
		t.Fatal("head half of the split area disappeared")
	}
	if got := m.Lookup(area.Start + 4); got != nil {
		t.Fatal("the punched hole is still mapped")
	}
	if got := m.Lookup(area.Start + 7); got == nil {
		t.Fatal("tail half of the split area disappeared")
	}
	if !m.IsRangeEmpty(area.Start+3, 3) {
		t.Fatal("IsRangeEmpty disagrees with Lookup about the punched hole")
	}
	if got := obj.RefCount(); got != before+1 {
		t.Fatalf("RefCount() after the split = %d, want %d (one higher than before, from the tail's new area)", got, before+1)
	}
}

func TestRemoveWholeAreaDropsItsReference(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, UserLowVPN, 4, ProtRead, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	obj := area.Obj
	if got := obj.RefCount(); got != 1 {
		t.Fatalf("RefCount() = %d, want 1", got)
	}
	if err := m.Remove(area.Start, area.Len()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := obj.RefCount(); got != 0 {
		t.Fatalf("RefCount() after removing the only area = %d, want 0", got)
	}
	if m.Lookup(area.Start) != nil {
		t.Fatal("area still present after a whole-area Remove")
	}
}

func TestCloneRefsEveryObjectAndStaysIndependent(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, UserLowVPN, 4, ProtRead|ProtWrite, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	clone := m.Clone()
	if got := area.Obj.RefCount(); got != 2 {
		t.Fatalf("original object RefCount() after Clone = %d, want 2", got)
	}

	// Removing the clone's area must not disturb the original map.
	cloneArea := clone.Lookup(area.Start)
	if cloneArea == nil {
		t.Fatal("clone is missing the area entirely")
	}
	if err := clone.Remove(cloneArea.Start, cloneArea.Len()); err != nil {
		t.Fatalf("Remove on clone: %v", err)
	}
	if m.Lookup(area.Start) == nil {
		t.Fatal("removing from the clone removed the area from the original too")
	}
	if got := area.Obj.RefCount(); got != 1 {
		t.Fatalf("original object RefCount() after the clone's area was removed = %d, want 1", got)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, UserLowVPN, 1, ProtRead|ProtWrite, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	vaddr := uint64(area.Start) * 4096

	want := []byte("round-trip")
	if err := m.Write(context.Background(), vaddr, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, len(want))
	if err := m.Read(context.Background(), vaddr, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("Read() = %q, want %q", got, want)
	}
}

func TestAreasSnapshotIsIndependentOfInternalSlice(t *testing.T) {
	m := newTestMap()
	if _, err := m.Map(nil, UserLowVPN, 4, ProtRead, MapPrivate|MapAnon, 0, DirLoHi); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := m.Map(nil, UserLowVPN+8, 4, ProtRead|ProtWrite, MapShared|MapAnon, 0, DirLoHi); err != nil {
		t.Fatalf("Map: %v", err)
	}

	before := m.Areas()
	// Appending to the snapshot must not perturb the map's own bookkeeping.
	before = append(before, &Vmarea{Start: 9999, End: 10000})

	after := m.Areas()
	ignoreObj := cmpopts.IgnoreFields(Vmarea{}, "Obj")
	if diff := cmp.Diff(before[:len(before)-1], after, ignoreObj); diff != "" {
		t.Fatalf("Areas() snapshot changed after mutating a previous snapshot (-before +after):\n%s", diff)
	}
	if len(after) != 2 {
		t.Fatalf("Areas() = %d entries after the appended snapshot leaked in, want 2", len(after))
	}
}

func TestWriteToReadOnlyAreaIsTrusted(t *testing.T) {
	m := newTestMap()
	area, err := m.Map(nil, UserLowVPN, 1, ProtRead, MapPrivate|MapAnon, 0, DirLoHi)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	vaddr := uint64(area.Start) * 4096
	// Map.Write is the kernel-internal copy path: it trusts its caller and
	// does not enforce the area's protection, unlike a real fault taken
	// from user mode through Fault.
	if err := m.Write(context.Background(), vaddr, []byte("x")); err != nil {
		t.Fatalf("Write to a read-only area failed: %v", err)
	}
	got := make([]byte, 1)
	if err := m.Read(context.Background(), vaddr, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != 'x' {
		t.Fatalf("Read = %q, want %q", got, "x")
	}
}
