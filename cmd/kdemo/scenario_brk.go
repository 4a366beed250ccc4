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
)

// brkCmd demonstrates growing and shrinking the heap: pages given back by
// a shrink are unmapped, and a subsequent grow past the old break gets
// fresh demand-zeroed pages rather than stale contents.
type brkCmd struct{}

func (*brkCmd) Name() string     { return "scenario4-brk" }
func (*brkCmd) Synopsis() string { return "brk grows and shrinks the heap" }
func (*brkCmd) Usage() string    { return "scenario4-brk\n" }
func (*brkCmd) SetFlags(*flag.FlagSet) {}

func (*brkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig()
	table := proc.NewTable(int(cfg.PageSizeBytes))
	p := table.Create()

	start, _ := p.Brk(0)
	fmt.Printf("initial break: 0x%x\n", start)

	grown, err := p.Brk(start + 3*cfg.PageSizeBytes)
	if err != nil {
		fmt.Printf("grow failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("grew break to: 0x%x\n", grown)

	if err := p.Map.Write(ctx, start, []byte("heap-data")); err != nil {
		fmt.Printf("heap write failed: %v\n", err)
		return subcommands.ExitFailure
	}

	shrunk, err := p.Brk(start + cfg.PageSizeBytes)
	if err != nil {
		fmt.Printf("shrink failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("shrank break to: 0x%x\n", shrunk)

	if !p.Map.IsRangeEmpty(uint32((start+cfg.PageSizeBytes)/cfg.PageSizeBytes), 2) {
		fmt.Println("FAIL: pages given back by the shrink are still mapped")
		return subcommands.ExitFailure
	}

	regrown, err := p.Brk(start + 3*cfg.PageSizeBytes)
	if err != nil {
		fmt.Printf("re-grow failed: %v\n", err)
		return subcommands.ExitFailure
	}
	view := make([]byte, cfg.PageSizeBytes)
	if err := p.Map.Read(ctx, regrown-cfg.PageSizeBytes, view); err != nil {
		fmt.Printf("read failed: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, b := range view {
		if b != 0 {
			fmt.Println("FAIL: re-grown page is not zero-filled")
			return subcommands.ExitFailure
		}
	}
	fmt.Println("PASS: shrink released pages and re-grow returned fresh zero pages")
	return subcommands.ExitSuccess
}
