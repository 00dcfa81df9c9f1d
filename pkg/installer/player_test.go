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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/realmdex/realmdex-core/pkg/notifications"
	"github.com/realmdex/realmdex-core/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "flashplayer_11.exe", PlayerFileName("11", "https://x/flashplayer_11.exe"))
	assert.Equal(t, "flashplayer_32", PlayerFileName("32", "https://x/players/linux/flashplayer"))
}

func TestEnsurePlayer_DownloadsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]byte{"/flashplayer_18.exe": []byte("MZ")})
	f.cfg.SetPlayerURL("18", f.server.URLFor("/flashplayer_18.exe"))

	p, err := f.orch.EnsurePlayer(context.Background(), "18")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, config.PlayersDir, "flashplayer_18.exe"), p)

	info, err := os.Stat(p)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode().Perm()&0o100, "player should be executable")
	}

	assert.Equal(t, []string{"Downloading Flash Player 18..."}, f.sink.Messages(notifications.KindInfo))
	assert.Equal(t, []string{"Flash Player 18 installed."}, f.sink.Messages(notifications.KindSuccess))

	hits := f.server.Hits()
	again, err := f.orch.EnsurePlayer(context.Background(), "18")
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, hits, f.server.Hits(), "second call should reuse the download")
}

func TestEnsurePlayer_DefaultVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]byte{"/fp11": []byte("MZ")})
	f.cfg.SetPlayerURL(config.DefaultPlayerVer, f.server.URLFor("/fp11"))

	p, err := f.orch.EnsurePlayer(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "flashplayer_"+config.DefaultPlayerVer, filepath.Base(p))
}

func TestEnsurePlayer_DownloadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cfg.SetPlayerURL("32", f.server.URLFor("/missing.exe"))

	_, err := f.orch.EnsurePlayer(context.Background(), "32")
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []string{"Failed to download Flash Player 32"}, f.sink.Messages(notifications.KindError))
}

func TestEnsurePlayer_UnknownVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.orch.EnsurePlayer(context.Background(), "99")
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestEnsurePlayer_ConfiguredPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	helpers.WriteTree(t, dir, map[string]helpers.TreeFile{
		"flashplayer_11.exe": {Content: "MZ", Mode: 0o755},
		"standalone.bin":     {Content: "MZ", Mode: 0o755},
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		want := filepath.Join(dir, "standalone.bin")
		f := newFixture(t, nil)
		f.cfg.SetSettings(config.Settings{DownloadsPath: f.root, PlayerPath: want})

		p, err := f.orch.EnsurePlayer(context.Background(), "11")
		require.NoError(t, err)
		assert.Equal(t, want, p)
		assert.Zero(t, f.server.Hits())
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.cfg.SetSettings(config.Settings{DownloadsPath: f.root, PlayerPath: dir})

		p, err := f.orch.EnsurePlayer(context.Background(), "11")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "flashplayer_11.exe"), p)
	})

	t.Run("missing falls back to download", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, map[string][]byte{"/fp.exe": []byte("MZ")})
		f.cfg.SetSettings(config.Settings{DownloadsPath: f.root, PlayerPath: filepath.Join(dir, "gone")})
		f.cfg.SetPlayerURL("11", f.server.URLFor("/fp.exe"))

		p, err := f.orch.EnsurePlayer(context.Background(), "11")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.root, config.PlayersDir, "flashplayer_11.exe"), p)
	})
}
