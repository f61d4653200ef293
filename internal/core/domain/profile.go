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
	"maps"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is applied to profiles created without an explicit timeout.
const DefaultTimeout = 2 * time.Minute

// SecretEncrypter turns a clear-text secret into its stored form.
type SecretEncrypter interface {
	Encrypt(plainText string) (string, error)
}

// ConnectionProfile is one saved way to reach a CRM organization.
type ConnectionProfile struct {
	ConnectionID *uuid.UUID
	// ConnectionName is the display name, unique within a profile file.
	ConnectionName string

	ConnectionString    string
	UseConnectionString bool

	AuthType     AuthType
	IsCustomAuth bool
	UseIfd       bool
	UseOnline    bool
	UseOsdp      bool
	UseSsl       bool

	UserDomain   string
	UserName     string
	SavePassword bool

	ServerName  string
	ServerPort  *int
	OriginalURL string

	Organization               string
	OrganizationURLName        string
	OrganizationFriendlyName   string
	OrganizationServiceURL     string
	OrganizationDataServiceURL string
	OrganizationVersion        string
	HomeRealmURL               string
	WebApplicationURL          string

	Timeout    time.Duration
	LastUsedOn time.Time

	CustomInformation map[string]string

	secret  string
	session Session
}

// NewConnectionProfile returns an empty profile, with a fresh identifier when
// createID is set.
func NewConnectionProfile(createID bool) *ConnectionProfile {
	p := &ConnectionProfile{Timeout: DefaultTimeout}
	if createID {
		id := uuid.New()
		p.ConnectionID = &id
	}
	return p
}

func (p *ConnectionProfile) String() string {
	return p.ConnectionName
}

// SetSecret encrypts plainText and stores the result. An empty input leaves
// the current secret untouched.
func (p *ConnectionProfile) SetSecret(enc SecretEncrypter, plainText string) error {
	if plainText == "" {
		return nil
	}
	cipherText, err := enc.Encrypt(plainText)
	if err != nil {
		return err
	}
	p.secret = cipherText
	return nil
}

// SetEncryptedSecret stores an already encrypted secret verbatim. An empty
// input leaves the current secret untouched.
func (p *ConnectionProfile) SetEncryptedSecret(cipherText string) {
	if cipherText == "" {
		return
	}
	p.secret = cipherText
}

func (p *ConnectionProfile) EraseSecret() {
	p.secret = ""
}

func (p *ConnectionProfile) EncryptedSecret() string {
	return p.secret
}

func (p *ConnectionProfile) SecretIsEmpty() bool {
	return p.secret == ""
}

// SecretDiffers reports whether cipherText is not the stored secret.
func (p *ConnectionProfile) SecretDiffers(cipherText string) bool {
	return cipherText != p.secret
}

func (p *ConnectionProfile) CopySecretTo(other *ConnectionProfile) {
	other.secret = p.secret
}

// Session returns the live session, if any.
func (p *ConnectionProfile) Session() Session {
	return p.session
}

func (p *ConnectionProfile) AttachSession(s Session) {
	p.session = s
}

func (p *ConnectionProfile) DetachSession() {
	p.session = nil
}

// OrganizationMajorVersion is parsed from OrganizationVersion, -1 when absent.
func (p *ConnectionProfile) OrganizationMajorVersion() int {
	return versionPart(p.OrganizationVersion, 0)
}

// OrganizationMinorVersion is parsed from OrganizationVersion, -1 when absent.
func (p *ConnectionProfile) OrganizationMinorVersion() int {
	return versionPart(p.OrganizationVersion, 1)
}

func versionPart(version string, idx int) int {
	if version == "" {
		return -1
	}
	parts := strings.Split(version, ".")
	if idx >= len(parts) {
		return -1
	}
	n, err := strconv.Atoi(parts[idx])
	if err != nil {
		return -1
	}
	return n
}

// Port returns the server port or 0 when none is set.
func (p *ConnectionProfile) Port() int {
	if p.ServerPort == nil {
		return 0
	}
	return *p.ServerPort
}

// IsBrokenByEdit reports whether p, the edited profile, differs from original
// in a way that invalidates a session built from original.
func (p *ConnectionProfile) IsBrokenByEdit(original *ConnectionProfile) bool {
	if original == nil {
		return true
	}
	return original.HomeRealmURL != p.HomeRealmURL ||
		original.IsCustomAuth != p.IsCustomAuth ||
		original.Organization != p.Organization ||
		original.OrganizationURLName != p.OrganizationURLName ||
		!strings.EqualFold(original.ServerName, p.ServerName) ||
		original.Port() != p.Port() ||
		original.UseIfd != p.UseIfd ||
		original.UseOnline != p.UseOnline ||
		original.UseOsdp != p.UseOsdp ||
		original.UseSsl != p.UseSsl ||
		!strings.EqualFold(original.UserDomain, p.UserDomain) ||
		!strings.EqualFold(original.UserName, p.UserName) ||
		(p.SavePassword && p.secret != "" && original.SecretDiffers(p.secret))
}

// UpdateAfterEdit copies every editable field of edited onto p. The
// identifier and the live session are kept.
func (p *ConnectionProfile) UpdateAfterEdit(edited *ConnectionProfile) {
	p.ConnectionName = edited.ConnectionName
	p.ConnectionString = edited.ConnectionString
	p.UseConnectionString = edited.UseConnectionString
	p.OrganizationServiceURL = edited.OrganizationServiceURL
	p.OrganizationDataServiceURL = edited.OrganizationDataServiceURL
	p.IsCustomAuth = edited.IsCustomAuth
	p.Organization = edited.Organization
	p.OrganizationURLName = edited.OrganizationURLName
	p.OrganizationFriendlyName = edited.OrganizationFriendlyName
	p.ServerName = edited.ServerName
	p.ServerPort = copyPort(edited.ServerPort)
	p.OriginalURL = edited.OriginalURL
	p.UseIfd = edited.UseIfd
	p.UseOnline = edited.UseOnline
	p.UseOsdp = edited.UseOsdp
	p.UserDomain = edited.UserDomain
	p.UserName = edited.UserName
	p.secret = edited.secret
	p.SavePassword = edited.SavePassword
	p.UseSsl = edited.UseSsl
	p.HomeRealmURL = edited.HomeRealmURL
	p.Timeout = edited.Timeout
	p.CustomInformation = maps.Clone(edited.CustomInformation)
}

// Clone returns a deep copy of p without its live session.
func (p *ConnectionProfile) Clone() *ConnectionProfile {
	c := *p
	c.session = nil
	if p.ConnectionID != nil {
		id := *p.ConnectionID
		c.ConnectionID = &id
	}
	c.ServerPort = copyPort(p.ServerPort)
	c.CustomInformation = maps.Clone(p.CustomInformation)
	return &c
}

func copyPort(port *int) *int {
	if port == nil {
		return nil
	}
	v := *port
	return &v
}

// OrganizationURL is the URL used to reach the organization: the original
// URL typed by the user, else the published web application URL.
func (p *ConnectionProfile) OrganizationURL() string {
	if p.OriginalURL != "" {
		return p.OriginalURL
	}
	return p.WebApplicationURL
}

// ApplyWebApplicationURL sets WebApplicationURL and derives the server host
// and port from it.
func (p *ConnectionProfile) ApplyWebApplicationURL(raw string) {
	p.WebApplicationURL = raw
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	p.ServerName = u.Hostname()
	port := u.Port()
	if port == "" {
		if strings.EqualFold(u.Scheme, "https") {
			port = "443"
		} else {
			port = "80"
		}
	}
	if n, err := strconv.Atoi(port); err == nil {
		p.ServerPort = &n
	}
}

// ByName sorts profiles by display name, ordinal comparison.
type ByName []*ConnectionProfile

func (s ByName) Len() int           { return len(s) }
func (s ByName) Less(i, j int) bool { return s[i].ConnectionName < s[j].ConnectionName }
func (s ByName) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
