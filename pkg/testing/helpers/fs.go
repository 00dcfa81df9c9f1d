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
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// TreeFile is one entry of a test directory tree or archive. A zero Mode
// means 0o644 for files.
type TreeFile struct {
	Content string
	Symlink string
	Mode    fs.FileMode
	Dir     bool
}

func (f TreeFile) mode() fs.FileMode {
	if f.Mode != 0 {
		return f.Mode
	}
	if f.Dir {
		return 0o755
	}
	return 0o644
}

func sortedNames(files map[string]TreeFile) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteTree creates files under root. Names use forward slashes.
func WriteTree(t *testing.T, root string, files map[string]TreeFile) {
	t.Helper()

	for _, name := range sortedNames(files) {
		f := files[name]
		p := filepath.Join(root, filepath.FromSlash(name))
		if f.Dir {
			require.NoError(t, os.MkdirAll(p, f.mode()))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		if f.Symlink != "" {
			require.NoError(t, os.Symlink(f.Symlink, p))
			continue
		}
		require.NoError(t, os.WriteFile(p, []byte(f.Content), f.mode()))
		// WriteFile is subject to umask
		require.NoError(t, os.Chmod(p, f.mode()))
	}
}

// ZipBytes builds a zip archive from files.
func ZipBytes(t *testing.T, files map[string]TreeFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		f := files[name]
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		content := f.Content
		switch {
		case f.Dir:
			hdr.Name = name + "/"
			hdr.SetMode(fs.ModeDir | f.mode())
		case f.Symlink != "":
			hdr.SetMode(fs.ModeSymlink | 0o777)
			content = f.Symlink
		default:
			hdr.SetMode(f.mode())
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if !f.Dir {
			_, err = w.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarBytes(t *testing.T, files map[string]TreeFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		f := files[name]
		hdr := &tar.Header{Name: name, Mode: int64(f.mode())}
		switch {
		case f.Dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Name = name + "/"
		case f.Symlink != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = f.Symlink
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(f.Content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(f.Content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TarGzBytes builds a gzip-compressed tar archive from files.
func TarGzBytes(t *testing.T, files map[string]TreeFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(tarBytes(t, files))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

// TarXzBytes builds an xz-compressed tar archive from files.
func TarXzBytes(t *testing.T, files map[string]TreeFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write(tarBytes(t, files))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}
