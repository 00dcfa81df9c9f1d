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
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// ArtifactServer serves fixed bodies by path and 404 for anything else.
type ArtifactServer struct {
	*httptest.Server
	hits atomic.Int32
}

// NewArtifactServer starts a server that is closed when the test ends.
func NewArtifactServer(t *testing.T, files map[string][]byte) *ArtifactServer {
	t.Helper()

	s := &ArtifactServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

// URLFor returns the absolute URL of path on the server.
func (s *ArtifactServer) URLFor(path string) string {
	return s.Server.URL + path
}

// Hits counts requests served so far.
func (s *ArtifactServer) Hits() int {
	return int(s.hits.Load())
}
