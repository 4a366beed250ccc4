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
	"time"

	"github.com/cenkalti/backoff"

	"tinykernel/pkg/pgcache"
)

// lookupPageFile consults the page cache; on a miss the vnode reads the
// page from storage via fillPageFile.
func (o *Object) lookupPageFile(ctx context.Context, pageNum uint32) (*pgcache.Frame, error) {
	f, err := o.cache.Get(ctx, o, pageNum, o.fillPageFile)
	if err != nil {
		return nil, err
	}
	o.trackResident(pageNum, f)
	return f, nil
}

func (o *Object) fillPageFile(ctx context.Context, f *pgcache.Frame) error {
	return o.vnode.ReadPage(f.Key.Index, f.Data)
}

// dirtyPageFile marks a page for writeback; cleanPageFile performs it.
func (o *Object) dirtyPageFile(f *pgcache.Frame) error {
	o.cache.Dirty(f)
	return nil
}

// cleanPageFile flushes a dirty page back to its vnode. Writeback is
// retried with truncated exponential backoff: the vnode's storage can
// fail a write transiently (a full queue, a momentary I/O error) without
// the write itself being wrong, and the caller of CleanPage has no way to
// tell the difference.
func (o *Object) cleanPageFile(f *pgcache.Frame) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 200 * time.Millisecond
	if err := backoff.Retry(func() error {
		return o.vnode.WritePage(f.Key.Index, f.Data)
	}, b); err != nil {
		return err
	}
	o.cache.Clean(f)
	return nil
}
