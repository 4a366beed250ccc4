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

	"tinykernel/pkg/proc"
	"tinykernel/pkg/vmm"
)

const forkChainDepth = 50

// forkChainCmd demonstrates that a shadow chain many generations deep
// still isolates every generation's write: fork 50 times in a row over
// one shared private area, let every generation write its own distinct
// page only once the whole chain exists, then confirm the deepest
// descendant sees only the page it wrote itself.
type forkChainCmd struct{}

func (*forkChainCmd) Name() string { return "scenario8-fork-chain" }
func (*forkChainCmd) Synopsis() string {
	return "a 50-generation fork chain isolates each generation's write"
}
func (*forkChainCmd) Usage() string { return "scenario8-fork-chain\n" }
func (*forkChainCmd) SetFlags(*flag.FlagSet) {}

func (*forkChainCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig()
	table := proc.NewTable(int(cfg.PageSizeBytes))

	chain := make([]*proc.Process, forkChainDepth+1)
	chain[0] = table.Create()
	addr, err := chain[0].Mmap(-1, 0, forkChainDepth*cfg.PageSizeBytes, vmm.ProtRead|vmm.ProtWrite, vmm.MapPrivate|vmm.MapAnon, 0)
	if err != nil {
		fmt.Printf("mmap failed: %v\n", err)
		return subcommands.ExitFailure
	}
	for i := 1; i <= forkChainDepth; i++ {
		chain[i] = chain[i-1].Fork()
	}
	fmt.Printf("forked a chain %d generations deep\n", forkChainDepth)

	for i := 1; i <= forkChainDepth; i++ {
		pageAddr := addr + uint64(i-1)*cfg.PageSizeBytes
		if err := chain[i].Map.Write(ctx, pageAddr, []byte{byte(i)}); err != nil {
			fmt.Printf("write by generation %d failed: %v\n", i, err)
			return subcommands.ExitFailure
		}
	}

	tip := chain[forkChainDepth]
	for i := 0; i < forkChainDepth; i++ {
		pageAddr := addr + uint64(i)*cfg.PageSizeBytes
		got := make([]byte, 1)
		if err := tip.Map.Read(ctx, pageAddr, got); err != nil {
			fmt.Printf("read page %d failed: %v\n", i, err)
			return subcommands.ExitFailure
		}
		wantOwnWrite := i == forkChainDepth-1
		if wantOwnWrite && got[0] != byte(forkChainDepth) {
			fmt.Printf("FAIL: tip's own page = %d, want %d\n", got[0], forkChainDepth)
			return subcommands.ExitFailure
		}
		if !wantOwnWrite && got[0] != 0 {
			fmt.Printf("FAIL: tip sees %d on page %d, which it never wrote\n", got[0], i)
			return subcommands.ExitFailure
		}
	}
	fmt.Println("PASS: the 50th descendant sees only its own write, zeros elsewhere")
	return subcommands.ExitSuccess
}
