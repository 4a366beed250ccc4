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

	"tinykernel/pkg/pgcache"
)

// LookupPage returns the frame backing pageNum, forcing it resident if
// necessary. forWrite must be true for any access that will modify the
// page; on a shadow object this is what triggers copy-on-write promotion.
func (o *Object) LookupPage(ctx context.Context, pageNum uint32, forWrite bool) (*pgcache.Frame, error) {
	return o.lookupPage(ctx, pageNum, forWrite)
}

func (o *Object) lookupPage(ctx context.Context, pageNum uint32, forWrite bool) (*pgcache.Frame, error) {
	switch o.kind {
	case KindAnon:
		return o.lookupPageAnon(ctx, pageNum)
	case KindFile:
		return o.lookupPageFile(ctx, pageNum)
	case KindShadow:
		return o.lookupPageShadow(ctx, pageNum, forWrite)
	default:
		return nil, fmt.Errorf("vmm: unknown mmobj kind %v", o.kind)
	}
}

// DirtyPage marks f as holding writes not yet flushed to backing storage.
// A no-op for anonymous and shadow objects, which have no backing store.
func (o *Object) DirtyPage(f *pgcache.Frame) error {
	if o.kind == KindFile {
		return o.dirtyPageFile(f)
	}
	return nil
}

// CleanPage flushes f's contents to backing storage. A no-op for
// anonymous and shadow objects.
func (o *Object) CleanPage(f *pgcache.Frame) error {
	if o.kind == KindFile {
		return o.cleanPageFile(f)
	}
	return nil
}
