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

package mocks

import (
	"context"

	"github.com/realmdex/realmdex-core/pkg/catalog"
	"github.com/stretchr/testify/mock"
)

// MockCatalogProvider is a testify mock for catalog.Provider.
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) Games(ctx context.Context) ([]catalog.Descriptor, error) {
	args := m.Called(ctx)
	if games, ok := args.Get(0).([]catalog.Descriptor); ok {
		//nolint:wrapcheck // Mock returns are already wrapped by caller
		return games, args.Error(1)
	}
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return nil, args.Error(1)
}

// StaticCatalog always returns the same descriptors.
type StaticCatalog []catalog.Descriptor

func (s StaticCatalog) Games(context.Context) ([]catalog.Descriptor, error) {
	out := make([]catalog.Descriptor, len(s))
	copy(out, s)
	return out, nil
}

var (
	_ catalog.Provider = (*MockCatalogProvider)(nil)
	_ catalog.Provider = StaticCatalog(nil)
)
