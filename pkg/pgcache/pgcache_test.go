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

package pgcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGetFillsOnce(t *testing.T) {
	c := New(64)
	var fills int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	frames := make([]*Frame, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error {
				mu.Lock()
				fills++
				mu.Unlock()
				time.Sleep(time.Millisecond)
				f.Data[0] = 7
				return nil
			})
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			frames[i] = f
		}(i)
	}
	wg.Wait()

	if fills != 1 {
		t.Fatalf("fill ran %d times, want 1", fills)
	}
	for i, f := range frames {
		if f != frames[0] {
			t.Fatalf("frame %d differs from frame 0; concurrent Get calls should share one frame", i)
		}
		if f.Data[0] != 7 {
			t.Fatalf("frame %d has data %v, want fill's write to be visible", i, f.Data)
		}
	}
}

func TestGetFillErrorDoesNotStick(t *testing.T) {
	c := New(64)
	wantErr := errors.New("boom")

	_, err := c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Get returned %v, want %v", err, wantErr)
	}

	f, err := c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Get after a failed fill returned %v, want a clean retry to succeed", err)
	}
	if f == nil {
		t.Fatal("Get returned a nil frame with no error")
	}
}

func TestGetResidentWaitMissingKeyIsNilNil(t *testing.T) {
	c := New(64)
	f, err := c.GetResidentWait(context.Background(), "owner", 42)
	if err != nil {
		t.Fatalf("GetResidentWait on a never-created key returned err %v, want nil", err)
	}
	if f != nil {
		t.Fatalf("GetResidentWait on a never-created key returned %v, want nil", f)
	}
}

func TestPinUnpinRoundTrip(t *testing.T) {
	c := New(64)
	f, err := c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error { return nil })
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Pin(f)
	c.Pin(f)
	if got := f.Pinned(); got != 2 {
		t.Fatalf("Pinned() = %d, want 2", got)
	}
	c.Unpin(f)
	if got := f.Pinned(); got != 1 {
		t.Fatalf("Pinned() = %d, want 1", got)
	}
}

func TestUnpinPanicsWhenNotPinned(t *testing.T) {
	c := New(64)
	f, _ := c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error { return nil })
	defer func() {
		if recover() == nil {
			t.Fatal("Unpin of an unpinned frame did not panic")
		}
	}()
	c.Unpin(f)
}

func TestGetCancellation(t *testing.T) {
	c := New(64)
	started := make(chan struct{})
	release := make(chan struct{})

	go c.Get(context.Background(), "owner", 0, func(ctx context.Context, f *Frame) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, "owner", 0, func(ctx context.Context, f *Frame) error { return nil }); err == nil {
		t.Fatal("Get with a cancelled context did not return an error")
	}
	close(release)
}
