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
	"github.com/realmdex/realmdex-core/pkg/testing/mocks"
	"github.com/stretchr/testify/mock"
)

// DefaultMockPID is the PID returned by NewMockCommandExecutor.
const DefaultMockPID = 4242

// NewMockCommandExecutor creates a MockCommandExecutor whose Start succeeds
// by default with DefaultMockPID.
//
// Override it in tests that need to verify exact behavior:
//
//	cmd := helpers.NewMockCommandExecutor()
//	cmd.ExpectedCalls = nil
//	cmd.On("Start", mock.Anything, mock.Anything, "/g/game.exe", []string(nil)).Return(1, nil)
func NewMockCommandExecutor() *mocks.MockCommandExecutor {
	cmd := &mocks.MockCommandExecutor{}
	cmd.On("Start", mock.Anything, mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(DefaultMockPID, nil).Maybe()
	return cmd
}
