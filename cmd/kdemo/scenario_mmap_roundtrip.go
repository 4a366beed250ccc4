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

// mmapRoundtripCmd demonstrates the full anonymous-mapping lifecycle in
// one sequence: map, write, read back, unmap, then touch the same
// address again and watch the process die of EFAULT.
type mmapRoundtripCmd struct{}

func (*mmapRoundtripCmd) Name() string { return "scenario7-mmap-roundtrip" }
func (*mmapRoundtripCmd) Synopsis() string {
	return "mmap, write, read back, munmap, then EFAULT on the same address"
}
func (*mmapRoundtripCmd) Usage() string { return "scenario7-mmap-roundtrip\n" }
func (*mmapRoundtripCmd) SetFlags(*flag.FlagSet) {}

func (*mmapRoundtripCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig()
	table := proc.NewTable(int(cfg.PageSizeBytes))
	p := table.Create()

	addr, err := p.Mmap(-1, 0, 2*cfg.PageSizeBytes, vmm.ProtRead|vmm.ProtWrite, vmm.MapPrivate|vmm.MapAnon, 0)
	if err != nil {
		fmt.Printf("mmap failed: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := p.Map.Write(ctx, addr, []byte{0x41, 0x42}); err != nil {
		fmt.Printf("write failed: %v\n", err)
		return subcommands.ExitFailure
	}
	got := make([]byte, 2)
	if err := p.Map.Read(ctx, addr, got); err != nil {
		fmt.Printf("read failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("wrote and read back: %#x\n", got)
	if got[0] != 0x41 || got[1] != 0x42 {
		fmt.Println("FAIL: read back did not match what was written")
		return subcommands.ExitFailure
	}

	if err := p.Munmap(addr, 2*cfg.PageSizeBytes); err != nil {
		fmt.Printf("munmap failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("unmapped the region")

	if err := p.HandleFault(ctx, addr, vmm.FaultRead); err != errno.EFAULT {
		fmt.Printf("expected EFAULT touching the unmapped address, got %v\n", err)
		return subcommands.ExitFailure
	}
	if p.State != proc.StateZombie {
		fmt.Println("FAIL: process was not terminated after touching unmapped memory")
		return subcommands.ExitFailure
	}
	fmt.Println("PASS: post-munmap access delivered EFAULT and terminated the process")
	return subcommands.ExitSuccess
}
