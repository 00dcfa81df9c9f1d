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

package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/realmdex/realmdex-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned when a catalog source cannot supply any valid
// descriptor.
var ErrUnavailable = errors.New("catalog unavailable")

//go:embed data/games.json
var bundled []byte

// Provider supplies the current ordered list of descriptors.
type Provider interface {
	Games(ctx context.Context) ([]Descriptor, error)
}

// Parse decodes a catalog payload and drops invalid entries.
func Parse(data []byte) ([]Descriptor, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return Sanitize(payload.Games), nil
}

// Remote reads the catalog from an HTTP endpoint.
type Remote struct {
	client *httpclient.Client
	clock  clockwork.Clock
	url    string
}

func NewRemote(client *httpclient.Client, catalogURL string, clock clockwork.Clock) *Remote {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Remote{client: client, url: catalogURL, clock: clock}
}

// Games fetches the catalog. A t=<unix-ms> parameter defeats intermediate
// caches.
func (r *Remote) Games(ctx context.Context) ([]Descriptor, error) {
	u, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %w", ErrUnavailable, r.url, err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(r.clock.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	body, err := r.client.Fetch(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	games, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: no valid games from %s", ErrUnavailable, r.url)
	}

	log.Debug().Msgf("fetched %d games from %s", len(games), r.url)
	return games, nil
}

// Embedded serves the catalog compiled into the binary.
type Embedded struct{}

func (Embedded) Games(context.Context) ([]Descriptor, error) {
	games, err := Parse(bundled)
	if err != nil {
		return nil, fmt.Errorf("%w: bundled: %w", ErrUnavailable, err)
	}
	return games, nil
}

// Fallback returns the primary catalog, or the secondary one when the
// primary fails for any reason.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f Fallback) Games(ctx context.Context) ([]Descriptor, error) {
	games, err := f.Primary.Games(ctx)
	if err == nil {
		return games, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("catalog fetch cancelled: %w", ctx.Err())
	}
	log.Warn().Err(err).Msg("falling back to bundled catalog")
	return f.Secondary.Games(ctx)
}

// Default wires the remote catalog with the bundled fallback.
func Default(client *httpclient.Client, catalogURL string) Provider {
	return Fallback{
		Primary:   NewRemote(client, catalogURL, nil),
		Secondary: Embedded{},
	}
}
