// RealmDex Core
// Copyright (c) 2026 The RealmDex Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of RealmDex Core.
//
// RealmDex Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// RealmDex Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with RealmDex Core.  If not, see <http://www.gnu.org/licenses/>.

// Package launcher starts game executables as detached processes and keeps
// track of which games are still running.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/realmdex/realmdex-core/pkg/helpers/command"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	// ErrExecutableMissing means the path does not exist or is not a file
	// that can be started.
	ErrExecutableMissing = errors.New("executable missing")
	// ErrSpawnFailed means the OS refused to start the process.
	ErrSpawnFailed = errors.New("failed to start process")
)

// PidChecker reports whether a process with the given PID is alive.
type PidChecker func(ctx context.Context, pid int32) (bool, error)

type Launcher struct {
	cmd       command.Executor
	pidExists PidChecker
	pids      map[string]int
	goos      string
	mu        syncutil.Mutex
}

// New creates a launcher that spawns through cmd. Liveness checks use
// gopsutil.
func New(cmd command.Executor) *Launcher {
	return &Launcher{
		cmd:       cmd,
		pidExists: process.PidExistsWithContext,
		pids:      make(map[string]int),
		goos:      runtime.GOOS,
	}
}

// WithPidChecker replaces the liveness check. Used by tests.
func (l *Launcher) WithPidChecker(fn PidChecker) *Launcher {
	l.pidExists = fn
	return l
}

// Launch starts path with args as a detached process and records its PID
// under gameID. It returns as soon as the OS has accepted the process.
func (l *Launcher) Launch(ctx context.Context, gameID, path string, args ...string) (int, error) {
	name, argv, err := l.command(path, args)
	if err != nil {
		return 0, err
	}

	opts := command.StartOptions{
		Dir:        filepath.Dir(path),
		Detached:   true,
		HideWindow: true,
	}

	log.Info().Msgf("launching %s: %s %v", gameID, name, argv)
	pid, err := l.cmd.Start(ctx, opts, name, argv...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, path, err)
	}

	l.mu.Lock()
	l.pids[gameID] = pid
	l.mu.Unlock()

	log.Info().Msgf("launched %s with pid %d", gameID, pid)
	return pid, nil
}

// command checks path and returns the program and arguments to start. A
// macOS application bundle is opened through open(1).
func (l *Launcher) command(path string, args []string) (string, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrExecutableMissing, err)
	}

	if info.IsDir() {
		if l.goos == "darwin" && strings.EqualFold(filepath.Ext(path), ".app") {
			argv := []string{"-n", path}
			if len(args) > 0 {
				argv = append(argv, "--args")
				argv = append(argv, args...)
			}
			return "open", argv, nil
		}
		return "", nil, fmt.Errorf("%w: %s is a directory", ErrExecutableMissing, path)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s is not a regular file", ErrExecutableMissing, path)
	}

	if l.goos != "windows" && info.Mode().Perm()&0o100 == 0 {
		// archives don't always keep the exec bit
		if err := os.Chmod(path, info.Mode().Perm()|0o100); err != nil {
			log.Warn().Err(err).Msgf("failed to mark %s executable", path)
		}
	}

	return path, args, nil
}

// PID returns the last recorded PID for gameID.
func (l *Launcher) PID(gameID string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pid, ok := l.pids[gameID]
	return pid, ok
}

// Running reports whether the process last launched for gameID is still
// alive. Dead entries are forgotten.
func (l *Launcher) Running(ctx context.Context, gameID string) bool {
	pid, ok := l.PID(gameID)
	if !ok {
		return false
	}

	alive, err := l.pidExists(ctx, int32(pid)) //nolint:gosec // PID fits in int32
	if err != nil {
		log.Debug().Err(err).Msgf("failed to check pid %d for %s", pid, gameID)
		return false
	}
	if !alive {
		l.mu.Lock()
		if l.pids[gameID] == pid {
			delete(l.pids, gameID)
		}
		l.mu.Unlock()
	}
	return alive
}
