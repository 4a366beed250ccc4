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
	"tinykernel/pkg/pgtable"
	"tinykernel/pkg/vmm"
)

// Fork creates a child process sharing p's address space under
// copy-on-write. child.Map starts as a plain clone of p.Map — every area
// duplicated, every mmobj's reference count bumped once for the clone's
// sake, shared areas left exactly as shared as before. Only areas mapped
// MAP_PRIVATE are then interposed with a pair of fresh shadow objects, one
// for parent and one for child, so a MAP_SHARED area (a straight
// vmmap.Clone ref-bump) stays visibly shared across the fork while a
// private area's writes on either side stay private to that side.
//
// No extra Ref is taken when interposing: Clone already left both the
// parent's and the child's area holding a reference on the pre-fork
// object (the parent's original reference, plus the one reference Clone
// added for the child's copy), and each new shadow's `shadowed` link
// simply takes over one of those two existing references rather than
// acquiring its own.
func (p *Process) Fork() *Process {
	p.mu.Lock()
	defer p.mu.Unlock()

	child := p.table.Create()
	child.Parent = p
	child.brk = p.brk
	child.Files = p.Files.Fork()
	if p.Cwd != nil {
		child.Cwd = p.Cwd.Dup()
	}

	child.Map = p.Map.Clone()

	parentAreas := p.Map.Areas()
	childAreas := child.Map.Areas()
	for i, pa := range parentAreas {
		if pa.Flags&vmm.MapPrivate == 0 {
			// MAP_SHARED: Clone's ref-bump is the whole story, both areas
			// keep pointing at the same object.
			continue
		}
		ca := childAreas[i]
		shadowed := pa.Obj
		bottom := shadowed.Bottom()

		pa.Obj = vmm.NewShadowObject(p.table.cache, shadowed, bottom)
		ca.Obj = vmm.NewShadowObject(p.table.cache, shadowed, bottom)
	}

	// The parent's existing PTEs point at pre-fork frames; drop them so its
	// next access faults through its new shadow objects.
	p.PTab.UnmapRange(vmm.UserLowVPN, vmm.UserHighVPN)
	pgtable.FlushAll()

	p.children[child.PID] = child
	log.Debugf("pid %d forked pid %d", p.PID, child.PID)
	return child
}
