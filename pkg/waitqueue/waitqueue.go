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

// Package waitqueue is the stand-in for the excluded scheduler's
// sleep/wake/cancel primitive. It provides a broadcast queue whose
// sleepers can be cancelled via a context.Context, the same shape as the
// cancellable sleeps this core's design requires on the shadow lookup and
// waitpid paths.
package waitqueue

import (
	"context"
	"sync"
)

// Queue is a broadcast wait queue. The zero value is ready to use.
type Queue struct {
	mu sync.Mutex
	ch chan struct{}
}

// New returns a ready Queue.
func New() *Queue {
	return &Queue{ch: make(chan struct{})}
}

// Broadcast wakes every goroutine currently blocked in Sleep.
func (q *Queue) Broadcast() {
	q.mu.Lock()
	if q.ch == nil {
		q.ch = make(chan struct{})
	}
	close(q.ch)
	q.ch = make(chan struct{})
	q.mu.Unlock()
}

// Sleep blocks until the next Broadcast or until ctx is done, whichever
// comes first. It returns ctx.Err() on cancellation.
func (q *Queue) Sleep(ctx context.Context) error {
	q.mu.Lock()
	if q.ch == nil {
		q.ch = make(chan struct{})
	}
	ch := q.ch
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
