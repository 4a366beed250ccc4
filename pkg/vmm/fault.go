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
	"errors"

	"tinykernel/pkg/hostarch"
	"tinykernel/pkg/pgcache"
)

// FaultCause is a bitset describing what kind of access triggered a page
// fault.
type FaultCause uint8

const (
	FaultRead FaultCause = 1 << iota
	FaultWrite
	FaultExec
)

// ErrSegv indicates a fault against an address with no mapping, or an
// access that its area's protection forbids. Callers should terminate the
// faulting process, not retry.
var ErrSegv = errors.New("vmm: segmentation violation")

// FaultResult carries the frame a fault resolved to and the area it fell
// within, so the caller can install a page-table entry.
type FaultResult struct {
	Frame *pgcache.Frame
	Area  *Vmarea
}

// Fault resolves a page fault at vaddr. A missing mapping or a
// protection violation (writing to a read-only area, executing a
// non-executable one, or any access to a PROT_NONE area) yields ErrSegv.
// Any other failure — most notably ENOMEM from LookupPage's fill path —
// is returned as-is for the caller to translate into its own policy.
func (m *VMMap) Fault(ctx context.Context, vaddr uint64, cause FaultCause) (*FaultResult, error) {
	vpn := hostarch.VPN(hostarch.Addr(vaddr))

	m.mu.RLock()
	area := m.lookupLocked(vpn)
	m.mu.RUnlock()
	if area == nil {
		return nil, ErrSegv
	}

	if cause&FaultWrite != 0 && !area.Prot.Has(ProtWrite) {
		return nil, ErrSegv
	}
	if cause&FaultExec != 0 && !area.Prot.Has(ProtExec) {
		return nil, ErrSegv
	}
	if cause&FaultRead != 0 && !area.Prot.Has(ProtRead) {
		return nil, ErrSegv
	}

	pageIndex := vpn - area.Start + area.Offset
	frame, err := area.Obj.LookupPage(ctx, pageIndex, cause&FaultWrite != 0)
	if err != nil {
		return nil, err
	}
	return &FaultResult{Frame: frame, Area: area}, nil
}
