//go:build !windows && !darwin

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
	"io/fs"
	"path/filepath"
	"strings"
)

// launcherExts are launchable even when the archive lost the execute bit.
var launcherExts = []string{".sh", ".x86_64", ".appimage"}

func isExecutable(path string, info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return info.Mode().Perm()&0o111 != 0
	}
	for _, e := range launcherExts {
		if ext == e {
			return true
		}
	}
	return false
}

func isBundle(string) bool {
	return false
}
