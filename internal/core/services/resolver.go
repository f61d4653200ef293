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

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver turns connection profiles into live sessions.
type Resolver struct {
	provider  ports.SessionProvider
	directory ports.DiscoveryDirectory
	cipher    ports.SecretCipher
	logger    *zap.SugaredLogger
}

// NewResolver creates a Resolver. directory may be nil, in which case online
// profiles get no discovery based retry.
func NewResolver(logger *zap.SugaredLogger, provider ports.SessionProvider, directory ports.DiscoveryDirectory, cipher ports.SecretCipher) *Resolver {
	return &Resolver{
		provider:  provider,
		directory: directory,
		cipher:    cipher,
		logger:    logger,
	}
}

func authMode(p *domain.ConnectionProfile) string {
	switch {
	case p.UseConnectionString:
		return "connection_string"
	case p.UseOnline:
		return "online"
	case p.UseIfd:
		return "ifd"
	default:
		return "ad"
	}
}

// Resolve returns the live session of p, building one when p has none or
// forceNew is set. The profile's identity fields and AuthType are refreshed
// only once the new session is ready; on failure they are left as they were.
func (r *Resolver) Resolve(ctx context.Context, p *domain.ConnectionProfile, forceNew bool) (domain.Session, error) {
	if !forceNew && p.Session() != nil {
		return p.Session(), nil
	}

	mode := authMode(p)
	r.logger.Infow("resolving connection profile", "name", p.ConnectionName, "mode", mode, "force_new", forceNew)

	var (
		session domain.Session
		apply   func(domain.Session)
		err     error
	)
	switch mode {
	case "connection_string":
		session, apply, err = r.fromConnectionString(ctx, p)
	case "online":
		session, apply, err = r.fromOnline(ctx, p)
	case "ifd":
		session, apply, err = r.fromFederation(ctx, p)
	default:
		session, apply, err = r.fromDomain(ctx, p)
	}
	if err != nil {
		r.logger.Errorw("connection profile resolution failed", "name", p.ConnectionName, "mode", mode, "error", err)
		return nil, err
	}

	if session == nil || !session.IsReady() {
		diagnostic := ""
		if session != nil {
			diagnostic = session.LastError()
			closeSession(session)
		}
		p.DetachSession()
		r.logger.Warnw("session is not ready", "name", p.ConnectionName, "mode", mode, "diagnostic", diagnostic)
		return nil, &domain.ConnectionError{Diagnostic: diagnostic}
	}

	if ts, ok := session.(domain.TimeoutSetter); ok && p.Timeout > 0 {
		ts.SetTimeout(p.Timeout)
	}
	apply(session)

	if previous := p.Session(); previous != nil && previous != session {
		closeSession(previous)
	}
	p.AttachSession(session)

	r.logger.Infow("connection profile resolved", "name", p.ConnectionName, "mode", mode,
		"auth_type", p.AuthType, "organization", p.Organization)
	return session, nil
}

func closeSession(s domain.Session) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

func providerFailure(err error) error {
	return &domain.ConnectionError{Diagnostic: err.Error()}
}

// decryptSecret returns the clear-text secret of p.
func (r *Resolver) decryptSecret(p *domain.ConnectionProfile) (string, error) {
	if p.SecretIsEmpty() {
		return "", domain.ErrMissingSecret
	}
	plain, err := r.cipher.Decrypt(p.EncryptedSecret())
	if err != nil {
		if errors.Is(err, domain.ErrDecryption) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return plain, nil
}

func (r *Resolver) fromConnectionString(ctx context.Context, p *domain.ConnectionProfile) (domain.Session, func(domain.Session), error) {
	p.ConnectionString = domain.EnsureRequireNewInstance(p.ConnectionString)

	s, err := r.provider.FromConnectionString(ctx, p.ConnectionString)
	if err != nil {
		return nil, nil, providerFailure(err)
	}
	return s, func(s domain.Session) { applyConnectionStringIdentity(p, s) }, nil
}

// copyOrganizationIdentity copies what the session reports about its
// organization onto p.
func copyOrganizationIdentity(p *domain.ConnectionProfile, s domain.Session) {
	org := s.Organization()
	p.OrganizationFriendlyName = org.FriendlyName
	p.OrganizationDataServiceURL = org.Endpoint(domain.EndpointOrganizationDataService)
	p.OrganizationServiceURL = org.Endpoint(domain.EndpointOrganizationService)
	p.ApplyWebApplicationURL(org.Endpoint(domain.EndpointWebApplication))
	p.Organization = org.UniqueName
	p.OrganizationVersion = org.Version
}

func applyConnectionStringIdentity(p *domain.ConnectionProfile, s domain.Session) {
	copyOrganizationIdentity(p, s)

	actual := s.ConnectedOrgURL()
	host := ""
	if u, err := url.Parse(actual); err == nil {
		host = u.Hostname()
	}
	p.UseOnline = domain.IsOnlineHost(host)
	p.UseOsdp = p.UseOnline
	p.UseSsl = strings.HasPrefix(strings.ToLower(actual), "https")
	p.UseIfd = s.AuthScheme() == domain.AuthSchemeIFD

	if t, ok := s.AuthScheme().AuthType(); ok {
		p.AuthType = t
	}
	p.IsCustomAuth = domain.HasUsernameDirective(p.ConnectionString)
}

func (r *Resolver) fromFederation(ctx context.Context, p *domain.ConnectionProfile) (domain.Session, func(domain.Session), error) {
	password, err := r.decryptSecret(p)
	if err != nil {
		return nil, nil, err
	}

	s, err := r.provider.FromFederation(ctx, ports.FederationRequest{
		UserName:     p.UserName,
		Password:     password,
		Domain:       p.UserDomain,
		HomeRealmURL: p.HomeRealmURL,
		ServerName:   p.ServerName,
		ServerPort:   p.Port(),
		Organization: p.OrganizationURLName,
		UseSSL:       p.UseSsl,
	})
	if err != nil {
		return nil, nil, providerFailure(err)
	}
	return s, func(domain.Session) { p.AuthType = domain.AuthTypeFederation }, nil
}

func (r *Resolver) fromDomain(ctx context.Context, p *domain.ConnectionProfile) (domain.Session, func(domain.Session), error) {
	creds := ports.DefaultCredentials()
	if p.IsCustomAuth {
		password, err := r.decryptSecret(p)
		if err != nil {
			return nil, nil, err
		}
		creds = ports.Credentials{UserName: p.UserName, Password: password, Domain: p.UserDomain}
	}

	s, err := r.provider.FromDomain(ctx, ports.DomainRequest{
		Credentials:  creds,
		ServerName:   p.ServerName,
		ServerPort:   p.Port(),
		Organization: p.OrganizationURLName,
		UseSSL:       p.UseSsl,
		Timeout:      p.Timeout,
	})
	if err != nil {
		return nil, nil, providerFailure(err)
	}
	return s, func(domain.Session) { p.AuthType = domain.AuthTypeActiveDirectory }, nil
}

type attemptResult struct {
	session domain.Session
	err     error
}

// awaitAll runs every attempt concurrently and returns once all of them have
// finished. Results keep submission order; winner is the index of the first
// attempt to finish with a ready session, or -1. Slower attempts are not
// cancelled.
func awaitAll(attempts ...func() (domain.Session, error)) (results []attemptResult, winner int) {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	results = make([]attemptResult, len(attempts))
	winner = -1
	for i, attempt := range attempts {
		g.Go(func() error {
			s, err := attempt()
			mu.Lock()
			defer mu.Unlock()
			results[i] = attemptResult{session: s, err: err}
			if winner < 0 && err == nil && s != nil && s.IsReady() {
				winner = i
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, winner
}

// onlineTarget returns the organization name and region to ask the online
// service for.
func onlineTarget(p *domain.ConnectionProfile) (orgName, region string) {
	if p.OriginalURL != "" {
		if org, reg, _, err := domain.OrgAndRegionFromURL(p.OriginalURL); err == nil && org != "" {
			return org, reg
		}
	}
	return p.OrganizationURLName, domain.OnlineRegion(p.ServerName)
}

func (r *Resolver) fromOnline(ctx context.Context, p *domain.ConnectionProfile) (domain.Session, func(domain.Session), error) {
	password, err := r.decryptSecret(p)
	if err != nil {
		return nil, nil, err
	}

	orgName, region := onlineTarget(p)
	attempt := func(useSSL bool, org string) func() (domain.Session, error) {
		return func() (domain.Session, error) {
			return r.provider.FromOnline(ctx, ports.OnlineRequest{
				UserName:     p.UserName,
				Password:     password,
				Region:       region,
				Organization: org,
				UseSSL:       useSSL,
				Office365:    p.UseOsdp,
			})
		}
	}
	apply := func(s domain.Session) {
		copyOrganizationIdentity(p, s)
		p.AuthType = domain.AuthTypeOnlineFederation
	}

	results, winner := awaitAll(attempt(true, orgName), attempt(false, orgName))
	if winner >= 0 {
		closeAllExcept(results, results[winner].session)
		return results[winner].session, apply, nil
	}

	r.logger.Infow("online attempts failed, resolving organization unique name",
		"name", p.ConnectionName, "organization_url_name", p.OrganizationURLName)

	uniqueName, err := r.resolveUniqueOrgName(ctx, p, password)
	if err != nil {
		closeAllExcept(results, nil)
		return nil, nil, err
	}

	retry, retryErr := attempt(true, uniqueName)()
	if retryErr == nil && retry != nil && retry.IsReady() {
		closeAllExcept(results, nil)
		return retry, apply, nil
	}

	// Report the retry if it produced a session, else the first race attempt
	// that did.
	failed := retry
	if failed == nil {
		for _, res := range results {
			if res.session != nil {
				failed = res.session
				break
			}
		}
	}
	closeAllExcept(results, failed)
	if failed != nil {
		return failed, apply, nil
	}

	errs := make([]error, 0, len(results)+1)
	for _, res := range results {
		errs = append(errs, res.err)
	}
	errs = append(errs, retryErr)
	if joined := errors.Join(errs...); joined != nil {
		return nil, nil, providerFailure(joined)
	}
	return nil, nil, &domain.ConnectionError{}
}

func closeAllExcept(results []attemptResult, keep domain.Session) {
	for _, res := range results {
		if res.session != nil && res.session != keep {
			closeSession(res.session)
		}
	}
}

func (r *Resolver) resolveUniqueOrgName(ctx context.Context, p *domain.ConnectionProfile, password string) (string, error) {
	if r.directory == nil {
		return "", &domain.OrganizationNotFoundError{URLName: p.OrganizationURLName}
	}

	endpoint := domain.DiscoveryEndpoint(p.ServerName)
	orgs, err := r.directory.Organizations(ctx, endpoint, ports.Credentials{
		UserName: p.UserName,
		Password: password,
		Domain:   p.UserDomain,
	})
	if err != nil {
		return "", fmt.Errorf("discover organizations at %s: %w", endpoint, err)
	}
	for _, org := range orgs {
		if strings.EqualFold(org.URLName, p.OrganizationURLName) {
			return org.UniqueName, nil
		}
	}
	return "", &domain.OrganizationNotFoundError{URLName: p.OrganizationURLName}
}

// ConnectionStringFor builds a connection string equivalent to p. Profiles
// that already use a connection string return it unchanged.
func (r *Resolver) ConnectionStringFor(p *domain.ConnectionProfile) (string, error) {
	if p.UseConnectionString {
		return p.ConnectionString, nil
	}

	cs := &domain.ConnectionString{}
	cs.Set("Url", p.OrganizationURL())

	if p.IsCustomAuth {
		if !p.UseIfd && p.UserDomain != "" {
			cs.Set("Domain", p.UserDomain)
		}
		username := p.UserName
		if p.UseIfd && p.UserDomain != "" {
			username = p.UserDomain + `\` + p.UserName
		}
		password, err := r.decryptSecret(p)
		if err != nil {
			return "", err
		}
		cs.Set("Username", username)
		cs.Set("Password", password)
	}

	if p.UseIfd && p.HomeRealmURL != "" {
		cs.Set("HomeRealmUri", p.HomeRealmURL)
	}
	cs.Set("Timeout", formatTimeout(p.Timeout))
	return cs.String(), nil
}

// formatTimeout renders d as hh:mm:ss.
func formatTimeout(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
