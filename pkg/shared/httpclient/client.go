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

package httpclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/realmdex/realmdex-core/pkg/config"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeoutSeconds is the default timeout for small requests
	DefaultTimeoutSeconds = 30
	// MaxBodySize caps bodies read fully into memory (catalog, player counts)
	MaxBodySize = 8 << 20
)

// CredentialSource looks up credentials for a request URL.
type CredentialSource interface {
	LookupAuth(reqURL string) *config.CredentialEntry
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid status code %d from %s", e.Code, e.URL)
}

// AuthTransport adds credentials from the [auth] config table and the app
// User-Agent to every request.
type AuthTransport struct {
	Base  http.RoundTripper
	Creds CredentialSource
}

// RoundTrip implements http.RoundTripper interface with automatic authentication
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", config.UserAgent+config.AppVersion)
	}

	if t.Creds != nil {
		creds := t.Creds.LookupAuth(req.URL.String())
		if creds != nil {
			if creds.Bearer != "" {
				req.Header.Set("Authorization", "Bearer "+creds.Bearer)
			} else if creds.Username != "" {
				auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
				req.Header.Set("Authorization", "Basic "+auth)
			}
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport provides a configured transport with connection pooling and reasonable timeouts
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

// Client provides an HTTP client with authentication and sensible defaults
type Client struct {
	*http.Client
}

// NewClient creates a client with no overall timeout. Long downloads bound
// themselves with a context deadline instead.
func NewClient(creds CredentialSource) *Client {
	return NewClientWithTimeout(creds, 0)
}

// NewClientWithTimeout creates a new HTTP client with a custom timeout
func NewClientWithTimeout(creds CredentialSource, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &AuthTransport{
				Base:  DefaultTransport,
				Creds: creds,
			},
			Timeout: timeout,
		},
	}
}

// Get performs a GET request and returns the response
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing GET request: %w", err)
	}
	if resp == nil {
		return nil, errors.New("received nil response")
	}

	return resp, nil
}

// Fetch GETs url and returns the whole body. A non-2xx status is a
// *StatusError. Bodies larger than MaxBodySize are rejected.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, MaxBodySize)
	}
	return body, nil
}

// DownloadFileArgs contains arguments for file download operations
type DownloadFileArgs struct {
	URL        string
	OutputPath string
	TempPath   string
}

// DownloadFile streams url to the output path and returns the bytes written.
// When TempPath is set the body is written there first and renamed into place,
// so OutputPath never holds a partial download.
func (c *Client) DownloadFile(ctx context.Context, args DownloadFileArgs) (int64, error) {
	resp, err := c.Get(ctx, args.URL)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: args.URL, Code: resp.StatusCode}
	}

	outputPath := args.OutputPath
	if args.TempPath != "" {
		outputPath = args.TempPath
	}

	file, err := os.Create(outputPath) // #nosec G304 - outputPath is validated by caller
	if err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		discardPartial(file, outputPath)
		return written, fmt.Errorf("error downloading file: %w", err)
	}

	expected := resp.ContentLength
	if expected > 0 && written != expected {
		discardPartial(file, outputPath)
		return written, fmt.Errorf("download incomplete: expected %d bytes, got %d", expected, written)
	}

	err = file.Close()
	if err != nil {
		return written, fmt.Errorf("error closing file: %w", err)
	}

	if args.TempPath != "" && args.TempPath != args.OutputPath {
		if err := os.Rename(args.TempPath, args.OutputPath); err != nil {
			removeErr := os.Remove(args.TempPath)
			if removeErr != nil {
				log.Warn().Err(removeErr).Msgf("error removing temp file: %s", args.TempPath)
			}
			return written, fmt.Errorf("error renaming temp file: %w", err)
		}
	}

	return written, nil
}

func discardPartial(file *os.File, path string) {
	if err := file.Close(); err != nil {
		log.Warn().Err(err).Msgf("error closing file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		log.Warn().Err(err).Msgf("error removing partial download: %s", path)
	}
}
