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

// Package klog is the kernel core's leveled logging facade. It wraps
// logrus rather than exposing it directly so call sites read Debugf/
// Infof/Warningf, matching the level names the rest of this codebase's
// comments and design documents use.
package klog

import "github.com/sirupsen/logrus"

// Logger is a named leveled logger. The zero value is not usable; call New.
type Logger struct {
	entry *logrus.Entry
}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// New returns a Logger tagged with the given subsystem name, e.g.
// "vmm", "proc", "pgcache".
func New(subsystem string) *Logger {
	return &Logger{entry: base.WithField("subsystem", subsystem)}
}

// SetLevel adjusts the minimum level emitted by every Logger.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

func (l *Logger) Debugf(format string, args ...interface{})   { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.entry.Infof(format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.entry.Errorf(format, args...) }
