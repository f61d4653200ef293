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

package domain

import (
	"errors"
	"fmt"
)

var (
	// resolution errors
	ErrConnectionFailed     = errors.New("connection failed")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrDecryption           = errors.New("unable to decrypt secret")
	ErrMissingSecret        = errors.New("user password cannot be empty: it is not stored in the connections file and must be requested from the user")

	// repository errors
	ErrProfileNotFound = errors.New("connection profile not found")
	ErrProfileExists   = errors.New("connection profile already exists")
	ErrInvalidProfile  = errors.New("invalid connection profile")
)

// ConnectionError reports a session that never became ready.
type ConnectionError struct {
	Diagnostic string
}

func (e *ConnectionError) Error() string {
	if e.Diagnostic == "" {
		return ErrConnectionFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrConnectionFailed, e.Diagnostic)
}

func (e *ConnectionError) Unwrap() error {
	return ErrConnectionFailed
}

// OrganizationNotFoundError reports a discovery lookup without a URL-name match.
type OrganizationNotFoundError struct {
	URLName string
}

func (e *OrganizationNotFoundError) Error() string {
	return fmt.Sprintf("unable to find the organization based on its url name %q", e.URLName)
}

func (e *OrganizationNotFoundError) Unwrap() error {
	return ErrOrganizationNotFound
}
