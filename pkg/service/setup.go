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
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/helpers"
	"github.com/realmdex/realmdex-core/pkg/manifest"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func setupEnvironment() error {
	if _, ok := helpers.HasUserDir(); ok {
		log.Info().Msg("using 'user' directory for storage")
	}

	log.Info().Msg("creating app directories")
	dirs := []string{
		helpers.ConfigDir(),
		helpers.DataDir(),
		filepath.Dir(helpers.ManifestPath()),
	}
	for _, dir := range dirs {
		err := os.MkdirAll(dir, 0o750)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Start builds a Manager over the real filesystem, loads the manifest and
// starts watching the settings record. The returned function stops the
// watcher.
func Start(cfg *config.Instance, notifier notifications.Sink) (*Manager, func() error, error) {
	log.Info().Msgf("starting %s %s", config.AppName, config.AppVersion)

	if err := setupEnvironment(); err != nil {
		return nil, nil, err
	}

	store := manifest.NewStore(afero.NewOsFs(), clockwork.NewRealClock(), helpers.ManifestPath())
	entries := store.Load()
	log.Info().Msgf("manifest loaded with %d installed games", len(entries))

	m := NewManager(ManagerArgs{
		Config:   cfg,
		Store:    store,
		Notifier: notifier,
	})

	stop, err := cfg.WatchSettings(func(config.Settings) {
		log.Debug().Msgf("downloads root is now %s", m.installer.DownloadsRoot())
	})
	if err != nil {
		log.Warn().Err(err).Msg("settings changes will not be picked up")
		stop = func() error { return nil }
	}

	return m, stop, nil
}
