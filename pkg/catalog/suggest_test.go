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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	t.Parallel()

	ids := []string{"realm-of-the-mad-god", "transformice", "club-penguin", "über-racer"}

	got, ok := Suggest("transformise", ids)
	assert.True(t, ok)
	assert.Equal(t, "transformice", got)

	got, ok = Suggest("CLUB-PENGUIN", ids)
	assert.True(t, ok)
	assert.Equal(t, "club-penguin", got)

	got, ok = Suggest("ÜBER-RACER", ids)
	assert.True(t, ok)
	assert.Equal(t, "über-racer", got)

	_, ok = Suggest("zzzz", ids)
	assert.False(t, ok)

	_, ok = Suggest("anything", nil)
	assert.False(t, ok)
}
