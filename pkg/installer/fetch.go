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
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/realmdex/realmdex-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

// FetchArgs describes one artifact transfer. Bytes land in TempPath and are
// renamed to FinalPath only when the transfer completed.
type FetchArgs struct {
	URL       string
	FinalPath string
	TempPath  string
}

// Fetcher transfers a single remote file to local disk.
type Fetcher interface {
	Fetch(ctx context.Context, args FetchArgs) error
}

// Fetchers selects a Fetcher by URL scheme.
type Fetchers map[string]Fetcher

// DefaultFetchers wires the http, smb and file schemes.
func DefaultFetchers(client *httpclient.Client, creds httpclient.CredentialSource) Fetchers {
	h := &HTTPFetcher{Client: client}
	return Fetchers{
		"http":  h,
		"https": h,
		"smb":   &SMBFetcher{Creds: creds},
		"file":  &FileFetcher{},
	}
}

func (f Fetchers) For(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact url %q: %w", rawURL, err)
	}
	fetcher, ok := f[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return fetcher, nil
}

// HTTPFetcher downloads over http and https.
type HTTPFetcher struct {
	Client *httpclient.Client
}

func (h *HTTPFetcher) Fetch(ctx context.Context, args FetchArgs) error {
	written, err := h.Client.DownloadFile(ctx, httpclient.DownloadFileArgs{
		URL:        args.URL,
		OutputPath: args.FinalPath,
		TempPath:   args.TempPath,
	})
	if err != nil {
		return fmt.Errorf("http fetch failed: %w", err)
	}
	log.Debug().Msgf("downloaded %d bytes from %s", written, args.URL)
	return nil
}

// FileFetcher copies from a local or mounted mirror given as a file:// URL.
type FileFetcher struct{}

func (*FileFetcher) Fetch(ctx context.Context, args FetchArgs) error {
	src, err := filePathFromURL(args.URL)
	if err != nil {
		return err
	}

	//nolint:gosec // Safe: source comes from the catalog the user configured
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msgf("error closing source file: %s", src)
		}
	}()

	return writeAtomically(ctx, in, args)
}

func filePathFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", rawURL, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file url with remote host %q is not supported", u.Host)
	}
	p := u.Path
	// file:///C:/games/x.zip
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	if p == "" {
		return "", fmt.Errorf("file url has no path: %s", rawURL)
	}
	return p, nil
}

// ctxReader stops a copy once its context is done.
type ctxReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single copy
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, fmt.Errorf("copy cancelled: %w", err)
	}
	n, err := c.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, err //nolint:wrapcheck // io.EOF must reach io.Copy unchanged
}

// writeAtomically streams r to args.TempPath and renames it into place.
func writeAtomically(ctx context.Context, r io.Reader, args FetchArgs) error {
	file, err := os.Create(args.TempPath)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	_, err = io.Copy(file, ctxReader{ctx: ctx, r: r})
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error closing file: %w", closeErr)
	}
	if err != nil {
		if removeErr := os.Remove(args.TempPath); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing partial download: %s", args.TempPath)
		}
		return fmt.Errorf("error downloading file: %w", err)
	}

	if err := os.Rename(args.TempPath, args.FinalPath); err != nil {
		if removeErr := os.Remove(args.TempPath); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing temp file: %s", args.TempPath)
		}
		return fmt.Errorf("error renaming temp file: %w", err)
	}
	return nil
}
