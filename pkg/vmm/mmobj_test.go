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
	"bytes"
	"context"
	"testing"

	"tinykernel/pkg/pgcache"
)

func TestAnonFillIsZeroed(t *testing.T) {
	cache := pgcache.New(16)
	o := NewAnonObject(cache)
	f, err := o.LookupPage(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("LookupPage: %v", err)
	}
	if !bytes.Equal(f.Data, make([]byte, 16)) {
		t.Fatalf("fresh anon page = %v, want all zero", f.Data)
	}
	if got := o.ResidentCount(); got != 1 {
		t.Fatalf("ResidentCount() = %d, want 1", got)
	}
}

// The release rule matches the original anon_put exactly: releasing
// triggers once the *post-decrement* refcount equals the resident page
// count, not once it hits zero. An object with one extra reference (as
// a shadow chain's bottom object typically has, from being Ref()'d by
// more than the vmarea that faulted the page) is released by the Put
// that brings refcount down to meet its resident count.
func TestPutReleasesWhenRefcountMatchesResident(t *testing.T) {
	cache := pgcache.New(16)
	o := NewAnonObject(cache) // refcount 1
	o.Ref()                   // refcount 2

	if _, err := o.LookupPage(context.Background(), 0, true); err != nil {
		t.Fatalf("LookupPage: %v", err)
	}
	if got := o.ResidentCount(); got != 1 {
		t.Fatalf("ResidentCount() = %d, want 1", got)
	}

	o.Put() // refcount 1, matches the 1 resident page: releases.
	if got := cache.GetResident(o, 0); got != nil {
		t.Fatal("page still resident after Put brought refcount down to match it")
	}
}

func TestShadowReadFallsThroughToBottom(t *testing.T) {
	cache := pgcache.New(16)
	bottom := NewAnonObject(cache)
	if _, err := bottom.LookupPage(context.Background(), 0, true); err != nil {
		t.Fatalf("LookupPage(bottom): %v", err)
	}
	bottomFrame, _ := bottom.LookupPage(context.Background(), 0, false)
	copy(bottomFrame.Data, []byte("bottom-contents"))

	bottom.Ref()
	shadow := NewShadowObject(cache, bottom, bottom)

	f, err := shadow.LookupPage(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("LookupPage(shadow, read): %v", err)
	}
	if f != bottomFrame {
		t.Fatal("a read-only shadow lookup should return the bottom object's own frame, not a copy")
	}
}

func TestShadowWritePromotesACopy(t *testing.T) {
	cache := pgcache.New(16)
	bottom := NewAnonObject(cache)
	bottomFrame, err := bottom.LookupPage(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("LookupPage(bottom): %v", err)
	}
	copy(bottomFrame.Data, []byte("original"))

	bottom.Ref()
	shadow := NewShadowObject(cache, bottom, bottom)

	f, err := shadow.LookupPage(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("LookupPage(shadow, write): %v", err)
	}
	if f == bottomFrame {
		t.Fatal("a write fault on a shadow should promote a private copy, not reuse the bottom's frame")
	}
	if !bytes.Equal(f.Data[:8], []byte("original")) {
		t.Fatalf("promoted copy = %q, want a copy of the bottom's contents", f.Data)
	}

	copy(f.Data, []byte("mutated!"))
	if bytes.Equal(bottomFrame.Data[:8], []byte("mutated!")) {
		t.Fatal("mutating the shadow's promoted copy leaked back into the bottom object")
	}
}

func TestShadowChainWalksIteratively(t *testing.T) {
	cache := pgcache.New(16)
	bottom := NewAnonObject(cache)
	if _, err := bottom.LookupPage(context.Background(), 0, true); err != nil {
		t.Fatalf("LookupPage(bottom): %v", err)
	}
	bf, _ := bottom.LookupPage(context.Background(), 0, false)
	copy(bf.Data, []byte("deep"))

	bottom.Ref()
	mid := NewShadowObject(cache, bottom, bottom)
	bottom.Ref()
	top := NewShadowObject(cache, mid, bottom)

	f, err := top.LookupPage(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("LookupPage(top, read): %v", err)
	}
	if !bytes.Equal(f.Data[:4], []byte("deep")) {
		t.Fatalf("chain walk returned %q, want the bottom object's contents", f.Data)
	}
}

func TestFilePutReleasesVnodeAtZeroRefs(t *testing.T) {
	cache := pgcache.New(16)
	vn := &fakeVnode{}
	o := NewFileObject(cache, vn)
	if _, err := o.LookupPage(context.Background(), 0, false); err != nil {
		t.Fatalf("LookupPage: %v", err)
	}
	o.Put()
	if !vn.decreffed {
		t.Fatal("file object did not release its vnode when its refcount hit zero")
	}
}

type fakeVnode struct {
	decreffed bool
}

func (v *fakeVnode) ReadPage(index uint32, dst []byte) error  { return nil }
func (v *fakeVnode) WritePage(index uint32, src []byte) error { return nil }
func (v *fakeVnode) DecRef()                                  { v.decreffed = true }
