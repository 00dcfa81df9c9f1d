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

package resolver

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/realmdex/realmdex-core/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exe names a launchable file for the current platform.
func exe(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base + ".sh"
}

func launchable() helpers.TreeFile {
	return helpers.TreeFile{Content: "#!/bin/sh\n", Mode: 0o755}
}

func tree(t *testing.T, files map[string]helpers.TreeFile) string {
	t.Helper()
	root := t.TempDir()
	helpers.WriteTree(t, root, files)
	return root
}

func TestFind_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{name: "game id beats generic", files: []string{exe("generic"), exe("realm")}, want: exe("realm")},
		{name: "game id case insensitive", files: []string{exe("aaa"), exe("REALM")}, want: exe("REALM")},
		{name: "launcher beats start", files: []string{exe("start"), exe("launcher"), exe("aaa")}, want: exe("launcher")},
		{name: "start beats others", files: []string{exe("aaa"), exe("start")}, want: exe("start")},
		{name: "any launchable", files: []string{"readme.txt", exe("zzz")}, want: exe("zzz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			files := map[string]helpers.TreeFile{}
			for _, f := range tt.files {
				files[f] = launchable()
			}
			if _, ok := files["readme.txt"]; ok {
				files["readme.txt"] = helpers.TreeFile{Content: "hi"}
			}
			root := tree(t, files)

			got, err := FindExecutable(root, "realm", "")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, tt.want), got)
		})
	}
}

func TestFind_RootBeatsNested(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		exe("other"):          launchable(),
		"sub/" + exe("realm"): launchable(),
	})

	got, err := FindExecutable(root, "realm", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, exe("other")), got)
}

func TestFind_DepthFirstByName(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		"readme.txt":         {Content: "hi"},
		"b/" + exe("x"):      launchable(),
		"a/notes.txt":        {Content: "hi"},
		"a/deep/" + exe("y"): launchable(),
	})

	got, err := FindExecutable(root, "realm", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "deep", exe("y")), got)
}

func TestFind_Hint(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		exe("realm"):            launchable(),
		"bin/Game.exe":          {Content: "MZ"},
		"x/y/Other.exe":         {Content: "MZ"},
		"docs/" + exe("manual"): launchable(),
	})

	t.Run("relative path", func(t *testing.T) {
		t.Parallel()
		got, err := FindExecutable(root, "realm", "bin/Game.exe")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "bin", "Game.exe"), got)
	})

	t.Run("backslash path", func(t *testing.T) {
		t.Parallel()
		got, err := FindExecutable(root, "realm", `bin\Game.exe`)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "bin", "Game.exe"), got)
	})

	t.Run("base name anywhere", func(t *testing.T) {
		t.Parallel()
		got, err := FindExecutable(root, "realm", "other.exe")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "x", "y", "Other.exe"), got)
	})

	t.Run("missing hint falls back", func(t *testing.T) {
		t.Parallel()
		got, err := FindExecutable(root, "realm", "Missing.exe")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, exe("realm")), got)
	})

	t.Run("escaping hint ignored", func(t *testing.T) {
		t.Parallel()
		outer := tree(t, map[string]helpers.TreeFile{
			exe("realm"):       launchable(),
			"inner/readme.txt": {Content: "hi"},
		})
		// the base name is still searched for inside inner, where it is absent
		got, err := FindExecutable(filepath.Join(outer, "inner"), "realm", "../"+exe("realm"))
		require.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, got)
	})
}

func TestFind_NotFound(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		"readme.txt":     {Content: "hi"},
		"assets/img.png": {Content: "png"},
	})

	_, err := FindExecutable(root, "realm", "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = FindExecutable(filepath.Join(root, "missing"), "realm", "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = FindExecutable(filepath.Join(root, "readme.txt"), "realm", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFind_SymlinkCycle(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := tree(t, map[string]helpers.TreeFile{
		"a/readme.txt": {Content: "hi"},
		"a/loop":       {Symlink: ".."},
		"b/self":       {Symlink: "."},
	})

	_, err := FindExecutable(root, "realm", "")
	require.ErrorIs(t, err, ErrNotFound)

	// a launchable file reached through the cycle is still found
	helpers.WriteTree(t, root, map[string]helpers.TreeFile{"c/" + exe("realm"): launchable()})
	got, err := FindExecutable(root, "realm", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "c", exe("realm")), got)
}

func TestFind_MaxDepth(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		"d1/d2/d3/" + exe("realm"): launchable(),
	})

	_, err := New(2).Find(root, "realm", "")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := New(0).Find(root, "realm", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "d1", "d2", "d3", exe("realm")), got)
}

func TestIsExecutable_Platform(t *testing.T) {
	t.Parallel()

	root := tree(t, map[string]helpers.TreeFile{
		"plain":         {Content: "x", Mode: 0o644},
		"binary":        {Content: "x", Mode: 0o755},
		"game.exe":      {Content: "MZ", Mode: 0o644},
		"game.x86_64":   {Content: "x", Mode: 0o644},
		"Game.AppImage": {Content: "x", Mode: 0o644},
		"Game.app":      {Dir: true},
	})

	check := func(name string) bool {
		p := filepath.Join(root, name)
		info, err := os.Stat(p)
		require.NoError(t, err)
		return isExecutable(p, info)
	}

	switch runtime.GOOS {
	case "windows":
		assert.True(t, check("game.exe"))
		assert.False(t, check("binary"))
		assert.False(t, check("Game.app"))
	case "darwin":
		assert.True(t, check("binary"))
		assert.True(t, check("Game.app"))
		assert.False(t, check("plain"))
		assert.False(t, check("game.exe"))
	default:
		assert.True(t, check("binary"))
		assert.True(t, check("game.x86_64"))
		assert.True(t, check("Game.AppImage"))
		assert.False(t, check("plain"))
		assert.False(t, check("game.exe"))
		assert.False(t, check("Game.app"))
	}
}
