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

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/realmdex/realmdex-core/pkg/archive"
	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/realmdex/realmdex-core/pkg/installer"
	"github.com/realmdex/realmdex-core/pkg/launcher"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/realmdex/realmdex-core/pkg/resolver"
)

var (
	// ErrUnknownGame means the id is not in the current catalog.
	ErrUnknownGame = errors.New("unknown game")
	// ErrNotInstalled means the artifact needed to play is not on disk.
	ErrNotInstalled = errors.New("game file not installed")
)

// UnknownGameError carries the closest catalog id, when one is similar
// enough to be worth suggesting.
type UnknownGameError struct {
	ID         string
	Suggestion string
}

func (e *UnknownGameError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown game %q, did you mean %q?", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("unknown game %q", e.ID)
}

func (e *UnknownGameError) Unwrap() error {
	return ErrUnknownGame
}

// Kind classifies an error for front ends.
type Kind string

const (
	KindNone               Kind = ""
	KindUnknownGame        Kind = "unknown-game"
	KindNotInstalled       Kind = "not-installed"
	KindCatalogUnavailable Kind = "catalog-unavailable"
	KindFetchFailed        Kind = "artifact-fetch-failed"
	KindFilesystem         Kind = "filesystem-failed"
	KindExtractionFailed   Kind = "extraction-failed"
	KindExecutableNotFound Kind = "executable-not-found"
	KindSpawnFailed        Kind = "spawn-failed"
	KindCancelled          Kind = "cancelled"
	KindInternal           Kind = "internal"
)

// KindOf maps err to its kind. The most specific sentinel wins, so a failed
// extraction caused by a filesystem error is still an extraction failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownGame):
		return KindUnknownGame
	case errors.Is(err, ErrNotInstalled):
		return KindNotInstalled
	case errors.Is(err, archive.ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, resolver.ErrNotFound):
		return KindExecutableNotFound
	case errors.Is(err, launcher.ErrSpawnFailed),
		errors.Is(err, launcher.ErrExecutableMissing):
		return KindSpawnFailed
	case errors.Is(err, installer.ErrFetchFailed):
		return KindFetchFailed
	case errors.Is(err, installer.ErrFilesystem),
		errors.Is(err, manifest.ErrWrite):
		return KindFilesystem
	case errors.Is(err, catalog.ErrUnavailable):
		return KindCatalogUnavailable
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}
