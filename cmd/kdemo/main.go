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

// Command kdemo drives the end-to-end scenarios the address-space core
// is designed against, one subcommand each, against a config loaded from
// a TOML file (or the built-in defaults).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"tinykernel/pkg/config"
	"tinykernel/pkg/hostarch"
	"tinykernel/pkg/klog"
	"tinykernel/pkg/vmm"
)

var (
	configPath = flag.String("config", "", "path to a TOML config file; defaults built in if omitted")
	debug      = flag.Bool("debug", false, "enable debug-level logging")
)

// loadConfig also pins hostarch.PageSize to the loaded page size, since
// every scenario builds its process table and does its own address
// arithmetic against that package variable.
func loadConfig() config.Config {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kdemo: loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	hostarch.PageSize = cfg.PageSizeBytes
	vmm.SetUserBounds(cfg.UserLow, cfg.UserHigh)
	return cfg
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&forkCOWCmd{}, "scenarios")
	subcommands.Register(&sharedMmapCmd{}, "scenarios")
	subcommands.Register(&privateMmapCmd{}, "scenarios")
	subcommands.Register(&brkCmd{}, "scenarios")
	subcommands.Register(&faultCmd{}, "scenarios")
	subcommands.Register(&waitpidCmd{}, "scenarios")
	subcommands.Register(&mmapRoundtripCmd{}, "scenarios")
	subcommands.Register(&forkChainCmd{}, "scenarios")

	flag.Parse()
	if *debug {
		klog.SetLevel(logrus.DebugLevel)
	}
	os.Exit(int(subcommands.Execute(context.Background())))
}
