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

// Package config loads the kernel core's boot-time configuration: the
// page size and the bounds of the user address space.
package config

import "github.com/BurntSushi/toml"

// Config holds kernel boot parameters. The zero value is invalid; use
// Default or Load.
type Config struct {
	// PageSizeBytes is the size of one virtual memory page. Production
	// boots use 4096; tests may shrink this to keep fixtures short.
	PageSizeBytes uint64 `toml:"page_size_bytes"`
	// UserLow and UserHigh bound the user portion of every process's
	// address space: valid vpns lie in [UserLow/PageSize, UserHigh/PageSize).
	UserLow  uint64 `toml:"user_low"`
	UserHigh uint64 `toml:"user_high"`
	// PageTableLimit is decoded from the file but is not applied by
	// anything in this module; a page directory's cap on resident
	// mappings is set per process with pgtable.Dir.SetLimit.
	PageTableLimit int `toml:"page_table_limit"`
}

// Default returns the production configuration: 4KiB pages and a user
// range modeled on a typical 32-bit split (low 4MiB reserved, top 1GiB
// reserved for the kernel).
func Default() Config {
	return Config{
		PageSizeBytes: 4096,
		UserLow:       0x00400000,
		UserHigh:      0xC0000000,
	}
}

// Load reads a Config from a TOML file at path, filling in any field left
// at its zero value with the Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.PageSizeBytes == 0 {
		cfg.PageSizeBytes = Default().PageSizeBytes
	}
	if cfg.UserHigh == 0 {
		cfg.UserLow = Default().UserLow
		cfg.UserHigh = Default().UserHigh
	}
	return cfg, nil
}
