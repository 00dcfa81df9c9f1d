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
	"sort"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// MinSuggestSimilarity is the lowest Jaro-Winkler score offered as a
// suggestion.
const MinSuggestSimilarity float32 = 0.8

// Suggest returns the catalog id closest to query, if any is similar enough.
func Suggest(query string, ids []string) (string, bool) {
	matches := Similar(query, ids, MinSuggestSimilarity)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// Similar returns ids scoring at least minSimilarity against query, best
// first. Comparison uses Unicode case folding.
func Similar(query string, ids []string, minSimilarity float32) []string {
	type scored struct {
		id    string
		score float32
	}
	fold := cases.Fold()
	q := fold.String(query)
	var matches []scored
	for _, id := range ids {
		score := edlib.JaroWinklerSimilarity(q, fold.String(id))
		if score < minSimilarity {
			continue
		}
		log.Debug().Str("query", query).Str("candidate", id).Float32("similarity", score).
			Msg("id suggestion candidate")
		matches = append(matches, scored{id: id, score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.id
	}
	return out
}
