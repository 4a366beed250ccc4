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

// lookupPageShadow implements the heart of copy-on-write. A read lookup
// walks the chain iteratively, returning the first resident copy found
// (or delegating to the bottom object on a miss all the way down). A
// write lookup always forces a fresh cache entry on this object, never
// the parent, so the promoted page belongs to this shadow from then on.
func (o *Object) lookupPageShadow(ctx context.Context, pageNum uint32, forWrite bool) (*pgcache.Frame, error) {
	if forWrite {
		f, err := o.cache.Get(ctx, o, pageNum, o.fillPageShadow)
		if err != nil {
			return nil, err
		}
		o.trackResident(pageNum, f)
		return f, nil
	}

	cur := o
	for cur != nil {
		if cur.kind == KindShadow {
			f, err := cur.cache.GetResidentWait(ctx, cur, pageNum)
			if err != nil {
				return nil, err
			}
			if f != nil {
				return f, nil
			}
			cur = cur.shadowed
			continue
		}
		f, err := cur.lookupPage(ctx, pageNum, false)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	panic("vmm: shadow chain has no bottom")
}

// fillPageShadow copies the current contents of pageNum from somewhere in
// the chain below shadowed into f, pinning f for the shadow's lifetime.
// Pin placement matches the source exactly: pinned before the fetch when
// falling through to the bottom object, after the copy when a shadow
// ancestor was found resident (see DESIGN.md open question (ii)).
func (o *Object) fillPageShadow(ctx context.Context, f *pgcache.Frame) error {
	cur := o.shadowed
	for cur != nil {
		if cur.kind == KindShadow {
			page, err := cur.cache.GetResidentWait(ctx, cur, f.Key.Index)
			if err != nil {
				return err
			}
			if page != nil {
				copy(f.Data, page.Data)
				o.cache.Pin(f)
				return nil
			}
			cur = cur.shadowed
			continue
		}
		o.cache.Pin(f)
		page, err := cur.lookupPage(ctx, f.Key.Index, false)
		if err != nil {
			return err
		}
		copy(f.Data, page.Data)
		return nil
	}
	return fmt.Errorf("vmm: shadow chain has no bottom")
}
