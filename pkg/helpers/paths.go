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

package helpers

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/realmdex/realmdex-core/pkg/config"
)

// UserDir is the name of the portable install directory next to the binary.
const UserDir = "user"

var (
	userDirOnce        sync.Once
	userDirCache       string
	userDirCacheExists bool
)

// HasUserDir checks if a "user" directory exists next to the running binary
// and returns its absolute path. When it exists it is the parent of every
// app directory, for a portable install. The result is cached.
func HasUserDir() (string, bool) {
	userDirOnce.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			return
		}

		userDir := filepath.Join(filepath.Dir(exe), UserDir)
		info, err := os.Stat(userDir)
		if err != nil || !info.IsDir() {
			return
		}

		userDirCache = userDir
		userDirCacheExists = true
	})

	return userDirCache, userDirCacheExists
}

func ConfigDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

func DataDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return filepath.Join(xdg.DataHome, config.AppName)
}

// DefaultDownloadsDir is where games go when the settings record does not
// name a downloads path: a folder in the user's downloads directory.
func DefaultDownloadsDir() string {
	if v, ok := HasUserDir(); ok {
		return filepath.Join(v, config.DefaultGamesDir)
	}
	base := xdg.UserDirs.Download
	if base == "" {
		base = filepath.Join(xdg.Home, "Downloads")
	}
	return filepath.Join(base, config.DefaultGamesDir)
}

// ManifestPath is the location of the installed-games manifest.
func ManifestPath() string {
	return filepath.Join(DataDir(), config.ManifestFile)
}

// PathWithin reports whether path is root or lies inside root. Both are
// cleaned first; no symlinks are resolved.
func PathWithin(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
