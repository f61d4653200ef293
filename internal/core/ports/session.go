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

package ports

import (
	"context"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
)

// Credentials are the user credentials handed to a session provider. With
// UseDefault set the provider authenticates as the calling OS user and the
// other fields are ignored.
type Credentials struct {
	UseDefault bool
	UserName   string
	Password   string
	Domain     string
}

// DefaultCredentials selects the ambient credentials of the process.
func DefaultCredentials() Credentials {
	return Credentials{UseDefault: true}
}

// DomainRequest builds an Active Directory session.
type DomainRequest struct {
	Credentials  Credentials
	ServerName   string
	ServerPort   int
	Organization string
	UseSSL       bool
	Timeout      time.Duration
}

// FederationRequest builds an IFD (claims based) session.
type FederationRequest struct {
	UserName     string
	Password     string
	Domain       string
	HomeRealmURL string
	ServerName   string
	ServerPort   int
	Organization string
	UseSSL       bool
}

// OnlineRequest builds an online session.
type OnlineRequest struct {
	UserName     string
	Password     string
	Region       string
	Organization string
	UseSSL       bool
	Office365    bool
}

// SessionProvider constructs live sessions. A provider returns a session
// that is not ready, rather than an error, when the server rejected the
// attempt; errors are reserved for failures to even try.
type SessionProvider interface {
	FromConnectionString(ctx context.Context, connectionString string) (domain.Session, error)
	FromDomain(ctx context.Context, req DomainRequest) (domain.Session, error)
	FromFederation(ctx context.Context, req FederationRequest) (domain.Session, error)
	FromOnline(ctx context.Context, req OnlineRequest) (domain.Session, error)
}

// DiscoveredOrganization is one entry of a discovery directory.
type DiscoveredOrganization struct {
	URLName      string
	UniqueName   string
	FriendlyName string
	Version      string
	URL          string
}

// DiscoveryDirectory lists the organizations reachable from a discovery endpoint.
type DiscoveryDirectory interface {
	Organizations(ctx context.Context, endpoint string, creds Credentials) ([]DiscoveredOrganization, error)
}

// SecretCipher encrypts and decrypts stored secrets.
type SecretCipher interface {
	Encrypt(plainText string) (string, error)
	Decrypt(cipherText string) (string, error)
}
