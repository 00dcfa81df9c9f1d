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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	t.Run("missing file is empty settings", func(t *testing.T) {
		t.Parallel()
		s, err := LoadSettings(filepath.Join(t.TempDir(), SettingsFile))
		require.NoError(t, err)
		assert.Equal(t, Settings{}, s)
	})

	t.Run("parses record", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), SettingsFile)
		data := `{"playerPath": "/opt/flash", "downloadsPath": "/games"}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		s, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, Settings{PlayerPath: "/opt/flash", DownloadsPath: "/games"}, s)
	})

	t.Run("corrupt record is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), SettingsFile)
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

		_, err := LoadSettings(path)
		require.Error(t, err)
	})
}

func TestDownloadsDir_SettingsWinOverDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	defaults := BaseDefaults
	defaults.Downloads.DefaultDir = filepath.Join(dir, "default")

	cfg, err := NewConfig(dir, defaults)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "default"), cfg.DownloadsDir())

	cfg.SetSettings(Settings{DownloadsPath: filepath.Join(dir, "custom"), PlayerPath: "/p"})
	assert.Equal(t, filepath.Join(dir, "custom"), cfg.DownloadsDir())
	assert.Equal(t, "/p", cfg.PlayerPath())
}

func TestLoad_CorruptSettingsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte("]]"), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, cfg.Settings())
}

func TestWatchSettings_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	changes := make(chan Settings, 4)
	stop, err := cfg.WatchSettings(func(s Settings) {
		changes <- s
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, stop())
	}()

	data := `{"playerPath": "", "downloadsPath": "/mnt/games"}`
	require.NoError(t, os.WriteFile(cfg.SettingsPath(), []byte(data), 0o600))

	select {
	case s := <-changes:
		assert.Equal(t, "/mnt/games", s.DownloadsPath)
	case <-time.After(5 * time.Second):
		t.Fatal("settings change was not observed")
	}

	assert.Equal(t, "/mnt/games", cfg.Settings().DownloadsPath)
}
