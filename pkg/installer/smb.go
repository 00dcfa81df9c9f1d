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

package installer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/cloudsoda/go-smb2"
	"github.com/realmdex/realmdex-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

// SMBFetcher copies artifacts from a Windows share, e.g.
// smb://nas/games/realm/realm.zip. Credentials come from the [auth] table.
type SMBFetcher struct {
	Creds httpclient.CredentialSource
}

type smbLocation struct {
	server string
	share  string
	path   string
}

func parseSMBURL(rawURL string) (smbLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return smbLocation{}, fmt.Errorf("invalid smb url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return smbLocation{}, fmt.Errorf("smb url has no host: %s", rawURL)
	}

	server := u.Host
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "445")
	}

	normalizedPath := strings.ReplaceAll(u.Path, "\\", "/")
	parts := strings.Split(strings.TrimPrefix(normalizedPath, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
		return smbLocation{}, fmt.Errorf("invalid SMB path format: %s", u.Path)
	}

	return smbLocation{
		server: server,
		share:  parts[0],
		path:   strings.Join(parts[1:], "/"),
	}, nil
}

func (s *SMBFetcher) Fetch(ctx context.Context, args FetchArgs) error {
	loc, err := parseSMBURL(args.URL)
	if err != nil {
		return err
	}

	var username, password string
	if s.Creds != nil {
		if creds := s.Creds.LookupAuth(args.URL); creds != nil {
			username = creds.Username
			password = creds.Password
		}
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     username,
			Password: password,
		},
	}

	session, err := d.Dial(ctx, loc.server)
	if err != nil {
		return fmt.Errorf("error dialing SMB server: %w", err)
	}
	defer func() {
		if err := session.Logoff(); err != nil {
			log.Warn().Err(err).Msg("error logging off SMB session")
		}
	}()

	share, err := session.Mount(loc.share)
	if err != nil {
		return fmt.Errorf("error mounting SMB share: %w", err)
	}
	defer func() {
		if err := share.Umount(); err != nil {
			log.Warn().Err(err).Msg("error unmounting SMB share")
		}
	}()

	remoteFile, err := share.Open(loc.path)
	if err != nil {
		return fmt.Errorf("error opening SMB file: %w", err)
	}
	defer func() {
		if err := remoteFile.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing SMB file")
		}
	}()

	return writeAtomically(ctx, remoteFile, args)
}
