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

// Package archive unpacks packaged-application archives into their working
// directory. Extraction is all-or-nothing and idempotent.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrExtractionFailed is returned for missing, corrupt or unsafe archives.
var ErrExtractionFailed = errors.New("extraction failed")

type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTarGz
	FormatTarXz
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	case FormatUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magicGzip     = []byte{0x1f, 0x8b}
	magicXz       = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// DetectFormat identifies an archive by its leading bytes.
func DetectFormat(path string) (Format, error) {
	//nolint:gosec // Safe: archive path is built from the game directory
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing archive: %s", path)
		}
	}()

	head := make([]byte, len(magicXz))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatUnknown, fmt.Errorf("failed to read archive header: %w", err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicZip), bytes.HasPrefix(head, magicZipEmpty):
		return FormatZip, nil
	case bytes.HasPrefix(head, magicGzip):
		return FormatTarGz, nil
	case bytes.HasPrefix(head, magicXz):
		return FormatTarXz, nil
	default:
		return FormatUnknown, errors.New("unrecognised archive format")
	}
}

// Populated reports whether dir exists and has at least one entry.
func Populated(dir string) bool {
	//nolint:gosec // Safe: target dir is built from the game directory
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing dir: %s", dir)
		}
	}()
	names, _ := f.Readdirnames(1)
	return len(names) > 0
}

// Extractor runs at most one extraction per target directory at a time.
type Extractor struct {
	group singleflight.Group
	runs  atomic.Int64
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// EnsureExtracted makes targetDir hold the contents of archivePath. A
// populated targetDir is left untouched. Concurrent calls for the same
// target share one extraction.
func (e *Extractor) EnsureExtracted(ctx context.Context, archivePath, targetDir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	targetDir = filepath.Clean(targetDir)
	if Populated(targetDir) {
		log.Debug().Msgf("already extracted: %s", targetDir)
		return nil
	}

	ch := e.group.DoChan(targetDir, func() (any, error) {
		if Populated(targetDir) {
			return nil, nil
		}
		e.runs.Add(1)
		return nil, extract(ctx, archivePath, targetDir)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrExtractionFailed, ctx.Err())
	}
}

func extract(ctx context.Context, archivePath, targetDir string) (err error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, archivePath, err)
	}

	parent := filepath.Dir(targetDir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("%w: cannot create parent directory: %w", ErrExtractionFailed, err)
	}

	staging := filepath.Join(parent, "."+filepath.Base(targetDir)+".extract-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o750); err != nil {
		return fmt.Errorf("%w: cannot create staging directory: %w", ErrExtractionFailed, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if removeErr := os.RemoveAll(staging); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing staging directory: %s", staging)
		}
	}()

	log.Info().Msgf("extracting %s (%s) to %s", archivePath, format, targetDir)

	t, err := newTree(staging)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	switch format {
	case FormatZip:
		err = extractZip(ctx, archivePath, t)
	case FormatTarGz, FormatTarXz:
		err = extractTarFile(ctx, archivePath, format, t)
	case FormatUnknown:
		err = errors.New("unrecognised archive format")
	}
	if err == nil {
		err = t.dropEscapingLinks()
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, archivePath, err)
	}

	// an empty leftover target is replaced
	if err := os.Remove(targetDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: target directory in the way: %w", ErrExtractionFailed, err)
	}
	if err := os.Rename(staging, targetDir); err != nil {
		return fmt.Errorf("%w: cannot move extracted files into place: %w", ErrExtractionFailed, err)
	}

	log.Info().Msgf("extraction complete: %s", targetDir)
	return nil
}
