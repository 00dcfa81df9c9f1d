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

// Package catalog supplies game descriptors from the remote catalog, with a
// bundled copy used whenever the remote one cannot be read.
package catalog

import (
	"slices"
	"strings"
)

// Artifact kinds as recorded in the manifest.
const (
	KindSWF = "swf"
	KindZip = "zip"
)

// Descriptor is read-only metadata for one installable game.
type Descriptor struct {
	ID          string `json:"id" validate:"required,slug"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Banner      string `json:"banner,omitempty"`
	AltBanner   string `json:"altBanner,omitempty"`
	Version     string `json:"version,omitempty" validate:"omitempty,gameversion"`
	// Executable is the expected entry point inside the packaged application.
	Executable string `json:"executable,omitempty" validate:"omitempty,entrypoint"`
	URLs       URLs   `json:"urls"`
}

// URLs are the artifact locators of a descriptor. Any of them may be empty.
type URLs struct {
	SWF     string `json:"swf,omitempty" validate:"omitempty,url"`
	AIR     string `json:"air,omitempty" validate:"omitempty,url"`
	Players string `json:"players,omitempty" validate:"omitempty,url"`
}

// Payload is the wire format of the catalog endpoint.
type Payload struct {
	Games []Descriptor `json:"games"`
}

// Artifact is one downloadable file declared by a descriptor.
type Artifact struct {
	Kind string
	URL  string
}

// Artifacts returns the declared artifacts in fetch order: the lightweight
// swf first, then the packaged zip.
func (d *Descriptor) Artifacts() []Artifact {
	var out []Artifact
	if d.URLs.SWF != "" {
		out = append(out, Artifact{Kind: KindSWF, URL: d.URLs.SWF})
	}
	if d.URLs.AIR != "" {
		out = append(out, Artifact{Kind: KindZip, URL: d.URLs.AIR})
	}
	return out
}

// Find returns the descriptor with the given id. Ids match case-insensitively.
func Find(games []Descriptor, id string) (Descriptor, bool) {
	i := slices.IndexFunc(games, func(d Descriptor) bool {
		return strings.EqualFold(d.ID, id)
	})
	if i < 0 {
		return Descriptor{}, false
	}
	return games[i], true
}

// IDs lists the ids of games in catalog order.
func IDs(games []Descriptor) []string {
	ids := make([]string, 0, len(games))
	for i := range games {
		ids = append(ids, games[i].ID)
	}
	return ids
}
