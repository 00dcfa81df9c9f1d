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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Settings is the record written by the settings screen of the desktop
// shell. It is read here but never written.
type Settings struct {
	PlayerPath    string `json:"playerPath"`
	DownloadsPath string `json:"downloadsPath"`
}

// LoadSettings reads a settings record. A missing file yields zero Settings.
func LoadSettings(path string) (Settings, error) {
	//nolint:gosec // Safe: settings path is derived from the config dir
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	} else if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, nil
}

func (c *Instance) SettingsPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settingsPath
}

func (c *Instance) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Instance) SetSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// DownloadsDir returns the root that per-game directories are created in.
// The settings record wins over the configured default.
func (c *Instance) DownloadsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := c.settings.DownloadsPath
	if dir == "" {
		dir = c.vals.Downloads.DefaultDir
	}
	if dir == "" {
		return ""
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}

// PlayerPath returns the user-selected standalone player, which may be a
// file or the directory containing it. Empty means not configured.
func (c *Instance) PlayerPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.PlayerPath
}

// WatchSettings reloads the settings record whenever it changes on disk and
// calls onChange with the new value. The returned function stops the watcher
// and waits for it to exit.
func (c *Instance) WatchSettings(onChange func(Settings)) (func() error, error) {
	path := filepath.Clean(c.SettingsPath())
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create settings watcher: %w", err)
	}

	// watch the directory: editors often replace the file instead of writing it
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch settings directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || event.Op == fsnotify.Chmod {
					continue
				}

				s, err := LoadSettings(path)
				if err != nil {
					log.Warn().Err(err).Msg("error reloading settings")
					continue
				}

				log.Info().Msgf("settings reloaded: downloads=%q player=%q", s.DownloadsPath, s.PlayerPath)
				c.SetSettings(s)
				if onChange != nil {
					onChange(s)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("settings watcher error")
			}
		}
	}()

	return func() error {
		err := watcher.Close()
		<-done
		if err != nil {
			return fmt.Errorf("failed to close settings watcher: %w", err)
		}
		return nil
	}, nil
}
