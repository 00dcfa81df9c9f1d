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

// Package manifest persists the record of installed games. The manifest file
// is the only source of truth for whether a game is installed.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrWrite is returned when the manifest file could not be written.
var ErrWrite = errors.New("manifest write failed")

// InstalledFile is one artifact on disk, tagged with its kind.
type InstalledFile struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Entry is the install record of a single game. A stored entry always has at
// least one file.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Files     []InstalledFile `json:"files"`
}

// Entries maps game identifiers to install records.
type Entries map[string]Entry

// Clone returns a deep copy.
func (e Entries) Clone() Entries {
	out := make(Entries, len(e))
	for id, entry := range e {
		entry.Files = slices.Clone(entry.Files)
		out[id] = entry
	}
	return out
}

// Encode renders entries in the on-disk format.
func Encode(entries Entries) ([]byte, error) {
	if entries == nil {
		entries = Entries{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Decode parses the on-disk format. Entries without files are dropped.
func Decode(data []byte) (Entries, error) {
	var entries Entries
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if entries == nil {
		entries = Entries{}
	}
	maps.DeleteFunc(entries, func(id string, e Entry) bool {
		if len(e.Files) == 0 {
			log.Warn().Msgf("dropping manifest entry with no files: %s", id)
			return true
		}
		return false
	})
	return entries, nil
}

// Store is the manifest file plus its in-memory mirror.
type Store struct {
	fs      afero.Fs
	clock   clockwork.Clock
	entries Entries
	path    string
	// commitMu serializes whole read-modify-write cycles.
	commitMu syncutil.Mutex
	mu       syncutil.RWMutex
}

// NewStore returns a store backed by path. Call Load before reading.
func NewStore(fs afero.Fs, clock clockwork.Clock, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		fs:      fs,
		clock:   clock,
		path:    path,
		entries: Entries{},
	}
}

func (s *Store) Path() string {
	return s.path
}

// readFile returns the entries currently on disk. A missing file is empty.
func (s *Store) readFile() (Entries, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Entries{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Decode(data)
}

// Load refreshes the in-memory mapping from disk and returns a copy of it.
// A missing or corrupt file yields an empty mapping.
func (s *Store) Load() Entries {
	entries, err := s.readFile()
	if err != nil {
		log.Warn().Err(err).Msgf("manifest unreadable, starting empty: %s", s.path)
		entries = Entries{}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	return entries.Clone()
}

func (s *Store) write(entries Entries) error {
	data, err := Encode(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: failed to create manifest dir: %w", ErrWrite, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = s.fs.Rename(tmpName, s.path)
	}
	if err != nil {
		if removeErr := s.fs.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			log.Warn().Err(removeErr).Msgf("failed to remove temp manifest: %s", tmpName)
		}
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Commit replaces the entry for gameID with files stamped with the current
// time. An empty files list removes the entry. On failure the in-memory
// mapping is left unchanged.
func (s *Store) Commit(gameID string, files []InstalledFile) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// re-read so entries committed by another store on the same file survive
	current, err := s.readFile()
	if err != nil {
		log.Warn().Err(err).Msg("manifest unreadable during commit, using in-memory copy")
		s.mu.RLock()
		current = s.entries.Clone()
		s.mu.RUnlock()
	}

	next := current.Clone()
	if len(files) > 0 {
		next[gameID] = Entry{
			Timestamp: s.clock.Now().UTC().Truncate(time.Millisecond),
			Files:     slices.Clone(files),
		}
	} else {
		delete(next, gameID)
	}

	if err := s.write(next); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()

	log.Debug().Msgf("manifest committed %s with %d files", gameID, len(files))
	return nil
}

// Remove deletes the entry for gameID.
func (s *Store) Remove(gameID string) error {
	return s.Commit(gameID, nil)
}

func (s *Store) IsInstalled(gameID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[gameID]
	return ok
}

// FilesFor returns a copy of the files recorded for gameID.
func (s *Store) FilesFor(gameID string) []InstalledFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries[gameID].Files)
}

// Entry returns the record for gameID.
func (s *Store) Entry(gameID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[gameID]
	if ok {
		e.Files = slices.Clone(e.Files)
	}
	return e, ok
}

// Entries returns a deep copy of the whole mapping.
func (s *Store) Entries() Entries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Clone()
}

// FileOfKind returns the first recorded file of the given kind.
func (s *Store) FileOfKind(gameID, kind string) (InstalledFile, bool) {
	for _, f := range s.FilesFor(gameID) {
		if f.Type == kind {
			return f, true
		}
	}
	return InstalledFile{}, false
}
