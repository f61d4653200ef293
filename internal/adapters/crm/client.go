// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package crm holds the HTTP based session provider and discovery directory.
package crm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Adembc/lazycrm/internal/core/ports"
)

// DefaultTimeout bounds a single probe or discovery request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of an error response ends up in a diagnostic.
const maxErrorBody = 512

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool

	// Timeout is the request timeout (defaults to DefaultTimeout if zero)
	Timeout time.Duration
}

// NewHTTPClient creates the HTTP client used by the provider and directories.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	hc := &http.Client{Timeout: timeout}
	if cfg.InsecureSkipVerify {
		hc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // user explicitly requested insecure
		}
	}
	return hc
}

// statusError is returned for unexpected HTTP status codes.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func newStatusError(resp *http.Response) *statusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &statusError{StatusCode: resp.StatusCode, Body: string(body)}
}

func setCredentials(req *http.Request, creds ports.Credentials) {
	if creds.UseDefault || creds.UserName == "" {
		return
	}
	user := creds.UserName
	if creds.Domain != "" {
		user = creds.Domain + `\` + creds.UserName
	}
	req.SetBasicAuth(user, creds.Password)
}

// getJSON performs a GET request and decodes the JSON response into result.
func getJSON(ctx context.Context, client *http.Client, url string, creds ports.Credentials, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	setCredentials(req, creds)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
