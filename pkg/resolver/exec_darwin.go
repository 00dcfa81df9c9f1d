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

// isExecutable accepts .app bundles and files with an execute bit.
func isExecutable(path string, info fs.FileInfo) bool {
	if info.IsDir() {
		return isBundle(path)
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func isBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".app")
}
