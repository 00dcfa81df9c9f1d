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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/realmdex/realmdex-core/pkg/shared/httpclient"
)

// UnknownPlayers is shown when the live count cannot be read.
const UnknownPlayers = -1

var errNoCount = errors.New("no player count in response")

var countFields = []string{"players", "count", "online"}

// FetchPlayerCount polls a live player-count endpoint.
func FetchPlayerCount(ctx context.Context, client *httpclient.Client, endpoint string) (int, error) {
	body, err := client.Fetch(ctx, endpoint)
	if err != nil {
		return UnknownPlayers, fmt.Errorf("failed to fetch player count: %w", err)
	}
	n, err := ParsePlayerCount(body)
	if err != nil {
		return UnknownPlayers, fmt.Errorf("failed to parse player count from %s: %w", endpoint, err)
	}
	return n, nil
}

// ParsePlayerCount accepts a bare integer, or a JSON object with a numeric
// players, count or online field.
func ParsePlayerCount(body []byte) (int, error) {
	body = bytes.TrimSpace(body)
	if n, err := strconv.Atoi(string(body)); err == nil {
		return checkCount(float64(n))
	}

	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return UnknownPlayers, errors.Join(errNoCount, err)
	}
	for _, field := range countFields {
		raw, ok := obj[field]
		if !ok {
			continue
		}
		num, ok := raw.(json.Number)
		if !ok {
			return UnknownPlayers, fmt.Errorf("%s is not a number", field)
		}
		f, err := num.Float64()
		if err != nil {
			return UnknownPlayers, fmt.Errorf("invalid %s value %q: %w", field, num, err)
		}
		return checkCount(f)
	}
	return UnknownPlayers, errNoCount
}

func checkCount(f float64) (int, error) {
	if f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return UnknownPlayers, fmt.Errorf("implausible player count %v", f)
	}
	return int(f), nil
}
