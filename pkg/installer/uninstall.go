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

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/rs/zerolog/log"
)

// Uninstall deletes every recorded file of a game, its extraction directory
// and, when left empty, the game directory, then removes the manifest entry.
// Missing files are not an error and a repeat call is a no-op.
//
// If some file cannot be deleted the entry is kept listing the files still on
// disk and an ErrFilesystem error is returned.
func (o *Orchestrator) Uninstall(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("uninstall cancelled: %w", err)
	}

	unlock := o.locks.Lock(gameID)
	defer unlock()

	files := o.store.FilesFor(gameID)

	var remaining []manifest.InstalledFile
	var errs []error
	dirs := map[string]struct{}{o.GameDir(gameID): {}}

	for _, f := range files {
		dirs[filepath.Dir(f.Path)] = struct{}{}
		err := os.Remove(f.Path)
		switch {
		case err == nil:
			log.Debug().Msgf("removed %s", f.Path)
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Msgf("already gone: %s", f.Path)
		default:
			log.Warn().Err(err).Msgf("failed to remove %s", f.Path)
			errs = append(errs, err)
			remaining = append(remaining, f)
		}
	}

	for dir := range dirs {
		if err := removeGameDir(dir); err != nil {
			log.Warn().Err(err).Msgf("failed to clean up %s", dir)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		if len(files) > 0 {
			if err := o.store.Commit(gameID, existingFiles(remaining)); err != nil {
				errs = append(errs, err)
			}
		}
		return fmt.Errorf("%w: uninstall of %s incomplete: %w", ErrFilesystem, gameID, errors.Join(errs...))
	}

	if !o.store.IsInstalled(gameID) {
		return nil
	}
	if err := o.store.Commit(gameID, nil); err != nil {
		return fmt.Errorf("failed to remove %s from manifest: %w", gameID, err)
	}

	log.Info().Msgf("uninstalled %s", gameID)
	return nil
}

// removeGameDir removes the extraction directory inside dir, then dir itself
// if nothing else is left in it.
func removeGameDir(dir string) error {
	extracted := filepath.Join(dir, config.PackagedDir)
	if err := os.RemoveAll(extracted); err != nil {
		return fmt.Errorf("failed to remove extraction directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read game directory: %w", err)
	}
	if len(entries) > 0 {
		log.Debug().Msgf("leaving non-empty game directory: %s", dir)
		return nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove game directory: %w", err)
	}
	return nil
}
