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

	"github.com/google/subcommands"

	"tinykernel/pkg/errno"
	"tinykernel/pkg/proc"
	"tinykernel/pkg/vmm"
)

// faultCmd demonstrates the two ways HandleFault terminates a process:
// EFAULT for an access with no mapping or against forbidden protection,
// and ENOMEM when installing the resolved page exceeds a (deliberately
// tiny, here) page-table budget.
type faultCmd struct{}

func (*faultCmd) Name() string     { return "scenario5-fault" }
func (*faultCmd) Synopsis() string { return "page faults terminate with EFAULT or ENOMEM as appropriate" }
func (*faultCmd) Usage() string    { return "scenario5-fault\n" }
func (*faultCmd) SetFlags(*flag.FlagSet) {}

func (*faultCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig()
	table := proc.NewTable(int(cfg.PageSizeBytes))

	segv := table.Create()
	if err := segv.HandleFault(ctx, uint64(vmm.UserLowVPN)*cfg.PageSizeBytes, vmm.FaultRead); err != errno.EFAULT {
		fmt.Printf("expected EFAULT touching unmapped memory, got %v\n", err)
		return subcommands.ExitFailure
	}
	if segv.State != proc.StateZombie {
		fmt.Println("FAIL: process was not terminated after EFAULT")
		return subcommands.ExitFailure
	}
	fmt.Println("PASS: unmapped access delivered EFAULT and terminated the process")

	roViolation := table.Create()
	addr, err := roViolation.Mmap(-1, 0, cfg.PageSizeBytes, vmm.ProtRead, vmm.MapPrivate|vmm.MapAnon, 0)
	if err != nil {
		fmt.Printf("mmap failed: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := roViolation.HandleFault(ctx, addr, vmm.FaultWrite); err != errno.EFAULT {
		fmt.Printf("expected EFAULT writing a read-only area, got %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("PASS: writing a read-only mapping delivered EFAULT")

	exhausted := table.Create()
	exhausted.PTab.SetLimit(1)
	addr2, err := exhausted.Mmap(-1, 0, 2*cfg.PageSizeBytes, vmm.ProtRead|vmm.ProtWrite, vmm.MapPrivate|vmm.MapAnon, 0)
	if err != nil {
		fmt.Printf("mmap failed: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := exhausted.HandleFault(ctx, addr2, vmm.FaultRead); err != nil {
		fmt.Printf("first fault should have succeeded, got %v\n", err)
		return subcommands.ExitFailure
	}
	if err := exhausted.HandleFault(ctx, addr2+cfg.PageSizeBytes, vmm.FaultRead); err != errno.ENOMEM {
		fmt.Printf("expected ENOMEM once the page-table limit was hit, got %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("PASS: exhausting the page-table budget delivered ENOMEM")

	return subcommands.ExitSuccess
}
