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

	"tinykernel/pkg/pgcache"
)

// lookupPageAnon delegates straight to the page cache, which invokes
// fillPageAnon on a miss. for_write is irrelevant to an anonymous object:
// there is no ancestor to promote away from.
func (o *Object) lookupPageAnon(ctx context.Context, pageNum uint32) (*pgcache.Frame, error) {
	f, err := o.cache.Get(ctx, o, pageNum, o.fillPageAnon)
	if err != nil {
		return nil, err
	}
	o.trackResident(pageNum, f)
	return f, nil
}

func (o *Object) fillPageAnon(ctx context.Context, f *pgcache.Frame) error {
	for i := range f.Data {
		f.Data[i] = 0
	}
	o.cache.Pin(f)
	return nil
}
