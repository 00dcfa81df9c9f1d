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

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// StartOptions configures command startup behavior.
type StartOptions struct {
	// Dir is the working directory of the new process. Empty means the
	// directory containing the executable.
	Dir string
	// Detached starts the process in its own session (Unix) or process group
	// without a console (Windows) so it outlives the launcher.
	Detached bool
	// HideWindow prevents a console window from appearing (Windows-only).
	HideWindow bool
}

// Executor starts external processes. It allows launches to be mocked in
// tests without spawning real binaries.
type Executor interface {
	// Start starts a command without waiting for it to complete
	// (fire-and-forget) and returns the PID of the new process.
	Start(ctx context.Context, opts StartOptions, name string, args ...string) (int, error)
}

// RealExecutor uses exec.Command to start system processes.
type RealExecutor struct{}

// Start starts name with args. Standard streams are left disconnected. The
// context only gates the start: a detached child is not killed when ctx ends.
func (*RealExecutor) Start(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("start cancelled: %w", err)
	}

	//nolint:gosec // Safe: launches an executable resolved from the downloads dir
	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	applyOptions(cmd, opts)

	if err := cmd.Start(); err != nil {
		//nolint:wrapcheck // Wrapping exec errors loses important context
		return 0, err
	}

	pid := cmd.Process.Pid
	// reap the child in the background so it never lingers as a zombie
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Msgf("process %d exited", pid)
			return
		}
		log.Debug().Msgf("process %d exited cleanly", pid)
	}()

	return pid, nil
}
