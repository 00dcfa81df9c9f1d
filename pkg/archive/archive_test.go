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

package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var gameTree = map[string]helpers.TreeFile{
	"Game.exe":          {Content: "MZ", Mode: 0o755},
	"data":              {Dir: true},
	"data/levels/1.dat": {Content: "level one"},
	"readme.txt":        {Content: "hello"},
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "game.zip")
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func assertGameTree(t *testing.T, target string) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(target, "data", "levels", "1.dat"))
	require.NoError(t, err)
	assert.Equal(t, "level one", string(data))

	info, err := os.Stat(filepath.Join(target, "Game.exe"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode().Perm()&0o100, "exec bit should survive extraction")
	}
}

func assertNoStaging(t *testing.T, parent string) {
	t.Helper()
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".extract-"), "leftover staging dir %s", e.Name())
	}
}

func TestEnsureExtracted_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		build  func(*testing.T, map[string]helpers.TreeFile) []byte
		format Format
	}{
		{name: "zip", build: helpers.ZipBytes, format: FormatZip},
		{name: "tar.gz", build: helpers.TarGzBytes, format: FormatTarGz},
		{name: "tar.xz", build: helpers.TarXzBytes, format: FormatTarXz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			archivePath := writeArchive(t, tt.build(t, gameTree))
			format, err := DetectFormat(archivePath)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)

			parent := t.TempDir()
			target := filepath.Join(parent, "air")
			require.NoError(t, NewExtractor().EnsureExtracted(context.Background(), archivePath, target))

			assertGameTree(t, target)
			assertNoStaging(t, parent)
		})
	}
}

func TestEnsureExtracted_Idempotent(t *testing.T) {
	t.Parallel()

	archivePath := writeArchive(t, helpers.ZipBytes(t, gameTree))
	target := filepath.Join(t.TempDir(), "air")
	e := NewExtractor()

	require.NoError(t, e.EnsureExtracted(context.Background(), archivePath, target))

	// the archive is no longer needed once the target is populated
	require.NoError(t, os.Remove(archivePath))
	require.NoError(t, e.EnsureExtracted(context.Background(), archivePath, target))

	assert.Equal(t, int64(1), e.runs.Load())
	assertGameTree(t, target)
}

func TestEnsureExtracted_ConcurrentSameTarget(t *testing.T) {
	t.Parallel()

	archivePath := writeArchive(t, helpers.TarXzBytes(t, gameTree))
	target := filepath.Join(t.TempDir(), "air")
	e := NewExtractor()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.EnsureExtracted(context.Background(), archivePath, target))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), e.runs.Load())
	assertGameTree(t, target)
}

func TestEnsureExtracted_CorruptArchive(t *testing.T) {
	t.Parallel()

	good := helpers.ZipBytes(t, gameTree)
	tests := map[string][]byte{
		"garbage":     []byte("this is not an archive"),
		"truncated":   good[:len(good)/2],
		"empty":       {},
		"bad gzip":    {0x1f, 0x8b, 0x00, 0x00},
		"bad xz body": append([]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, make([]byte, 32)...),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			archivePath := writeArchive(t, data)
			parent := t.TempDir()
			target := filepath.Join(parent, "air")

			err := NewExtractor().EnsureExtracted(context.Background(), archivePath, target)
			require.ErrorIs(t, err, ErrExtractionFailed)
			assert.False(t, Populated(target))
			assertNoStaging(t, parent)
		})
	}
}

func TestEnsureExtracted_MissingArchive(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "air")
	err := NewExtractor().EnsureExtracted(context.Background(), filepath.Join(t.TempDir(), "nope.zip"), target)
	require.ErrorIs(t, err, ErrExtractionFailed)
	assert.False(t, Populated(target))
}

func TestEnsureExtracted_RejectsZipSlip(t *testing.T) {
	t.Parallel()

	for name, build := range map[string]func(*testing.T, map[string]helpers.TreeFile) []byte{
		"zip":    helpers.ZipBytes,
		"tar.gz": helpers.TarGzBytes,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			archivePath := writeArchive(t, build(t, map[string]helpers.TreeFile{
				"ok.txt":        {Content: "fine"},
				"../escape.txt": {Content: "evil"},
			}))
			parent := t.TempDir()
			target := filepath.Join(parent, "air")

			err := NewExtractor().EnsureExtracted(context.Background(), archivePath, target)
			require.ErrorIs(t, err, ErrExtractionFailed)

			_, statErr := os.Stat(filepath.Join(parent, "escape.txt"))
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
			assert.False(t, Populated(target))
		})
	}
}

func TestEnsureExtracted_TarSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	archivePath := writeArchive(t, helpers.TarGzBytes(t, map[string]helpers.TreeFile{
		"bin/game.sh":  {Content: "#!/bin/sh\n", Mode: 0o755},
		"run.sh":       {Symlink: "bin/game.sh"},
		"outside.link": {Symlink: "../../etc/passwd"},
	}))
	target := filepath.Join(t.TempDir(), "air")

	require.NoError(t, NewExtractor().EnsureExtracted(context.Background(), archivePath, target))

	link, err := os.Readlink(filepath.Join(target, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, "bin/game.sh", link)

	_, err = os.Lstat(filepath.Join(target, "outside.link"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEnsureExtracted_RejectsWritesThroughSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	for name, build := range map[string]func(*testing.T, map[string]helpers.TreeFile) []byte{
		"zip":    helpers.ZipBytes,
		"tar.gz": helpers.TarGzBytes,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			// each link looks harmless alone, but s/up lands on the parent
			archivePath := writeArchive(t, build(t, map[string]helpers.TreeFile{
				"s":            {Symlink: "."},
				"s/up":         {Symlink: ".."},
				"up/pwned.txt": {Content: "escaped"},
			}))
			parent := t.TempDir()
			target := filepath.Join(parent, "game")

			err := NewExtractor().EnsureExtracted(context.Background(), archivePath, target)
			require.ErrorIs(t, err, ErrExtractionFailed)

			_, statErr := os.Stat(filepath.Join(parent, "pwned.txt"))
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
			assert.False(t, Populated(target))
			assertNoStaging(t, parent)
		})
	}
}

func TestEnsureExtracted_DropsChainedEscapingLinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	archivePath := writeArchive(t, helpers.TarGzBytes(t, map[string]helpers.TreeFile{
		"bin/game.sh": {Content: "#!/bin/sh\n", Mode: 0o755},
		"here":        {Symlink: "."},
		"parent":      {Symlink: "here/.."},
		"gone":        {Symlink: "here/../missing"},
		"later":       {Symlink: "bin/missing"},
	}))
	target := filepath.Join(t.TempDir(), "air")

	require.NoError(t, NewExtractor().EnsureExtracted(context.Background(), archivePath, target))

	for _, name := range []string{"parent", "gone"} {
		_, err := os.Lstat(filepath.Join(target, name))
		assert.True(t, errors.Is(err, os.ErrNotExist), name)
	}
	_, err := os.Lstat(filepath.Join(target, "later"))
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(target, "here"))
	require.NoError(t, err)
	assert.Equal(t, ".", link)
}

func TestEnsureExtracted_FileReplacesSymlink(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	tr, err := newTree(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("keep"), 0o600))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(root, "alias.txt")))

	dest, err := tr.dest("alias.txt")
	require.NoError(t, err)
	require.NoError(t, writeFile(context.Background(), dest, strings.NewReader("new"), 0o644))

	data, err := os.ReadFile(filepath.Join(root, "real.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	info, err := os.Lstat(dest)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}

func TestEnsureExtracted_ReplacesEmptyTarget(t *testing.T) {
	t.Parallel()

	archivePath := writeArchive(t, helpers.ZipBytes(t, gameTree))
	target := filepath.Join(t.TempDir(), "air")
	require.NoError(t, os.MkdirAll(target, 0o750))

	require.NoError(t, NewExtractor().EnsureExtracted(context.Background(), archivePath, target))
	assertGameTree(t, target)
}

func TestEnsureExtracted_Cancelled(t *testing.T) {
	t.Parallel()

	archivePath := writeArchive(t, helpers.ZipBytes(t, gameTree))
	parent := t.TempDir()
	target := filepath.Join(parent, "air")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExtractor().EnsureExtracted(ctx, archivePath, target)
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, Populated(target))
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator)+"games", "air")

	for _, bad := range []string{"../x", "a/../../x", "/etc/passwd", `C:\x`, `..\x`} {
		_, err := safeJoin(root, bad)
		assert.Error(t, err, bad)
	}

	p, err := safeJoin(root, `sub\dir/file.txt`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "dir", "file.txt"), p)
}

func TestTracker(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	tr := NewTracker(clock)

	assert.Equal(t, StatusIdle, tr.State("g").Status)

	tr.Start("g")
	assert.True(t, tr.Extracting("g"))
	assert.Equal(t, clock.Now(), tr.State("g").Since)

	clock.Advance(time.Minute)
	boom := errors.New("boom")
	tr.Finish("g", boom)
	st := tr.State("g")
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, boom, st.Err)
	assert.Len(t, tr.Snapshot(), 1)

	tr.Start("g")
	tr.Finish("g", nil)
	assert.Equal(t, StatusIdle, tr.State("g").Status)
	assert.Empty(t, tr.Snapshot())
}
