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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/proc"
)

// waitpidCmd demonstrates the parent/child reap protocol: WaitPid blocks
// until a matching child exits, reaps exactly that pid, and a further
// wait for the same pid (or with no children left) reports ECHILD.
type waitpidCmd struct{}

func (*waitpidCmd) Name() string     { return "scenario6-waitpid" }
func (*waitpidCmd) Synopsis() string { return "waitpid blocks for exit, reaps once, then reports ECHILD" }
func (*waitpidCmd) Usage() string    { return "scenario6-waitpid\n" }
func (*waitpidCmd) SetFlags(*flag.FlagSet) {}

func (*waitpidCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig()
	table := proc.NewTable(int(cfg.PageSizeBytes))
	parent := table.Create()
	child := parent.Fork()

	go func() {
		time.Sleep(10 * time.Millisecond)
		child.Exit(42)
	}()

	pid, status, err := parent.WaitPid(ctx, child.PID)
	if err != nil {
		fmt.Printf("waitpid failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("reaped pid %d with status %d\n", pid, status)
	if pid != child.PID || status != 42 {
		fmt.Println("FAIL: unexpected reaped pid or status")
		return subcommands.ExitFailure
	}

	if _, ok := table.Get(child.PID); ok {
		fmt.Println("FAIL: child still tracked by the process table after reap")
		return subcommands.ExitFailure
	}

	if _, _, err := parent.WaitPid(ctx, child.PID); err != errno.ECHILD {
		fmt.Printf("expected ECHILD after the only child was reaped, got %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("PASS: wait blocked for exit, reaped once, then reported ECHILD")
	return subcommands.ExitSuccess
}
