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

// Package proc implements process lifecycle on top of the address-space
// core in pkg/vmm: creation, fork's copy-on-write interposition, the
// brk/mmap/munmap address-space syscalls, page-fault handling, and
// exit/waitpid.
package proc

import (
	"context"
	"sync"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/hostarch"
	"tinykernel/pkg/klog"
	"tinykernel/pkg/pgcache"
	"tinykernel/pkg/pgtable"
	"tinykernel/pkg/vfs"
	"tinykernel/pkg/vmm"
	"tinykernel/pkg/waitqueue"
)

var log = klog.New("proc")

// State is a process's lifecycle state.
type State int

const (
	StateRunning State = iota
	StateZombie
	StateDead
)

// Process is a schedulable unit of address space: a page map, a page
// directory, a program break, and enough bookkeeping to fork, fault,
// and exit.
type Process struct {
	PID    int
	State  State
	Parent *Process

	Map   *vmm.VMMap
	PTab  *pgtable.Dir
	Cwd   *vfs.File
	Files *FDTable

	table *Table

	mu         sync.Mutex
	brk        uint32 // current break, in vpns, exclusive
	exitStatus int
	children   map[int]*Process
	dead       chan struct{}
}

// Table allocates PIDs and holds the page frame cache shared by every
// process it creates, mirroring the single system-wide page cache the
// original design assumes.
type Table struct {
	mu      sync.Mutex
	nextPID int
	cache   *pgcache.Cache
	procs   map[int]*Process
	waiters *waitqueue.Queue
}

// NewTable returns an empty process table whose processes share a page
// cache with pageSize-byte frames.
func NewTable(pageSize int) *Table {
	return &Table{
		nextPID: 1,
		cache:   pgcache.New(pageSize),
		procs:   make(map[int]*Process),
		waiters: waitqueue.New(),
	}
}

// Create returns a fresh process with an empty address space and no
// parent. Callers of Create are responsible for populating the initial
// mapping (e.g. via Mmap) themselves; there is no exec in this core.
func (t *Table) Create() *Process {
	t.mu.Lock()
	pid := t.nextPID
	t.nextPID++
	t.mu.Unlock()

	p := &Process{
		PID:      pid,
		Map:      vmm.NewVMMap(t.cache),
		PTab:     pgtable.NewDir(),
		Files:    NewFDTable(),
		brk:      vmm.UserLowVPN,
		table:    t,
		children: make(map[int]*Process),
		dead:     make(chan struct{}),
	}

	t.mu.Lock()
	t.procs[pid] = p
	t.mu.Unlock()

	log.Debugf("created pid %d", pid)
	return p
}

// Get returns the process with the given pid, if it is still tracked by
// the table (i.e. has not yet been reaped).
func (t *Table) Get(pid int) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

func (t *Table) forget(pid int) {
	t.mu.Lock()
	delete(t.procs, pid)
	t.mu.Unlock()
}

// HandleFault resolves a page fault at vaddr against p's address space,
// classifying vmm.ErrSegv as an EFAULT termination and any other error
// (in practice ENOMEM from a failed fill) as an ENOMEM termination. On
// success, it installs the resolved frame into p's page directory.
func (p *Process) HandleFault(ctx context.Context, vaddr uint64, cause vmm.FaultCause) error {
	res, err := p.Map.Fault(ctx, vaddr, cause)
	if err != nil {
		if err == vmm.ErrSegv {
			log.Warningf("pid %d: segv at 0x%x", p.PID, vaddr)
			p.terminate(errno.EFAULT)
			return errno.EFAULT
		}
		log.Warningf("pid %d: fault at 0x%x failed: %v", p.PID, vaddr, err)
		p.terminate(errno.ENOMEM)
		return errno.ENOMEM
	}

	flags := pgtable.Present | pgtable.User
	if cause&vmm.FaultWrite != 0 && res.Area.Prot.Has(vmm.ProtWrite) {
		flags |= pgtable.Writable
	}
	vpn := hostarch.VPN(hostarch.Addr(vaddr))
	if err := p.PTab.Map(vpn, res.Frame, flags); err != nil {
		p.terminate(errno.ENOMEM)
		return errno.ENOMEM
	}
	return nil
}

// terminate marks p exited with the given cause without going through
// the normal Exit(status) call, for internal use by the fault handler.
func (p *Process) terminate(cause errno.Errno) {
	p.Exit(int(cause) | exitSignaled)
}

// exitSignaled is or'ed into the status of a fault-induced termination so
// that WaitPid callers can tell it apart from a status a process passed
// to Exit itself; the low bits carry the errno.
const exitSignaled = 1 << 30
