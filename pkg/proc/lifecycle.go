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
	"context"

	"tinykernel/pkg/errno"
)

// Exit is the self-cleanup phase: it tears down p's address space,
// releases its working-directory reference, closes every open file
// descriptor, and marks it a zombie carrying status, waking anyone
// blocked in WaitPid on it. It does not free the pid or the page
// directory — that is the parent's job, done in WaitPid's reap.
func (p *Process) Exit(status int) {
	p.mu.Lock()
	if p.State != StateRunning {
		p.mu.Unlock()
		return
	}
	p.State = StateZombie
	p.exitStatus = status
	p.mu.Unlock()

	p.Map.Destroy()

	if p.Cwd != nil {
		p.Cwd.Close()
	}
	p.Files.CloseAll()

	close(p.dead)
	p.table.waiters.Broadcast()
	log.Debugf("pid %d exited with status %d", p.PID, status)
}

// WaitPid blocks until the child pid has exited, then reaps it (removing
// it from both p's child set and the process table) and returns its exit
// status. pid of -1 waits for any child. It reports ECHILD immediately if
// p has no matching child, running or zombie.
func (p *Process) WaitPid(ctx context.Context, pid int) (int, int, error) {
	for {
		p.mu.Lock()
		if len(p.children) == 0 {
			p.mu.Unlock()
			return 0, 0, errno.ECHILD
		}

		var found *Process
		if pid == -1 {
			for _, c := range p.children {
				if c.zombie() {
					found = c
					break
				}
			}
		} else {
			c, ok := p.children[pid]
			if !ok {
				p.mu.Unlock()
				return 0, 0, errno.ECHILD
			}
			if c.zombie() {
				found = c
			}
		}
		p.mu.Unlock()

		if found != nil {
			p.mu.Lock()
			delete(p.children, found.PID)
			p.mu.Unlock()
			found.table.forget(found.PID)
			found.PTab.Destroy()
			found.mu.Lock()
			found.State = StateDead
			status := found.exitStatus
			found.mu.Unlock()
			return found.PID, status, nil
		}

		if err := p.table.waiters.Sleep(ctx); err != nil {
			return 0, 0, err
		}
	}
}

func (p *Process) zombie() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State == StateZombie
}
