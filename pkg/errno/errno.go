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

// Package errno provides the POSIX-style error codes returned across the
// kernel's internal interfaces and delivered to user processes as exit
// statuses.
package errno

import "golang.org/x/sys/unix"

// Errno is the error type used throughout this module. It is
// golang.org/x/sys/unix's Errno directly: every error this kernel produces
// already has a standard POSIX name and number, so there is no separate
// error taxonomy to maintain.
type Errno = unix.Errno

// Codes used by this core. Names match the manpages the design document
// cites; values are whatever the host's unix package defines for them.
const (
	EINVAL       = unix.EINVAL
	EACCES       = unix.EACCES
	EBADF        = unix.EBADF
	ENOMEM       = unix.ENOMEM
	EFAULT       = unix.EFAULT
	ECHILD       = unix.ECHILD
	ENOENT       = unix.ENOENT
	EEXIST       = unix.EEXIST
	ENOTDIR      = unix.ENOTDIR
	EISDIR       = unix.EISDIR
	EMLINK       = unix.EMLINK
	ENAMETOOLONG = unix.ENAMETOOLONG
	ENOSPC       = unix.ENOSPC
	EMFILE       = unix.EMFILE
)
