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
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/rs/zerolog/log"
)

// PlayerFileName is the file name a player version is stored under. The
// extension follows the download URL.
func PlayerFileName(version, playerURL string) string {
	ext := ""
	if u, err := url.Parse(playerURL); err == nil {
		ext = path.Ext(u.Path)
	}
	return "flashplayer_" + version + ext
}

// findConfiguredPlayer resolves the user-selected player: either the file
// itself or a directory holding it.
func findConfiguredPlayer(configured, version string) (string, bool) {
	info, err := os.Stat(configured)
	if err != nil {
		log.Warn().Err(err).Msgf("configured player path unusable: %s", configured)
		return "", false
	}
	if !info.IsDir() {
		return configured, true
	}

	candidates := []string{
		"flashplayer_" + version,
		"flashplayer",
		"flashplayer_sa",
	}
	for _, name := range candidates {
		for _, ext := range []string{"", ".exe"} {
			p := filepath.Join(configured, name+ext)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, true
			}
		}
	}

	log.Warn().Msgf("no player binary in configured directory: %s", configured)
	return "", false
}

// EnsurePlayer returns the standalone player used to run swf artifacts. The
// configured player wins. Otherwise the requested version (the configured
// one when empty) is downloaded once into the players directory and reused.
func (o *Orchestrator) EnsurePlayer(ctx context.Context, version string) (string, error) {
	if version == "" {
		version = o.cfg.PlayerVersion()
	}

	if configured := o.cfg.PlayerPath(); configured != "" {
		if p, ok := findConfiguredPlayer(configured, version); ok {
			return p, nil
		}
	}

	playerURL, ok := o.cfg.PlayerURL(version)
	if !ok {
		return "", fmt.Errorf("%w: no player url for version %q", ErrFetchFailed, version)
	}

	unlock := o.locks.Lock("player:" + version)
	defer unlock()

	dir := filepath.Join(o.DownloadsRoot(), config.PlayersDir)
	playerPath := filepath.Join(dir, PlayerFileName(version, playerURL))

	if _, err := os.Stat(playerPath); err == nil {
		return playerPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: error checking player: %w", ErrFilesystem, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: cannot create players directory: %w", ErrFilesystem, err)
	}

	log.Info().Msgf("downloading player %s: %s", version, playerURL)
	notifications.Info(o.notifier, fmt.Sprintf("Downloading Flash Player %s...", version))

	if err := o.fetch(ctx, playerURL, playerPath); err != nil {
		notifications.Error(o.notifier, fmt.Sprintf("Failed to download Flash Player %s", version))
		return "", fmt.Errorf("failed to download player %s: %w", version, err)
	}

	if runtime.GOOS != "windows" {
		//nolint:gosec // the player must be executable by the user
		if err := os.Chmod(playerPath, 0o755); err != nil {
			return "", fmt.Errorf("%w: cannot mark player executable: %w", ErrFilesystem, err)
		}
	}

	notifications.Success(o.notifier, fmt.Sprintf("Flash Player %s installed.", version))
	return playerPath, nil
}
