package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
)

type fakeSession struct {
	ready   bool
	lastErr string
	scheme  domain.AuthScheme
	org     domain.OrganizationInfo
	url     string

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

func (s *fakeSession) IsReady() bool                         { return s.ready }
func (s *fakeSession) LastError() string                     { return s.lastErr }
func (s *fakeSession) AuthScheme() domain.AuthScheme         { return s.scheme }
func (s *fakeSession) Organization() domain.OrganizationInfo { return s.org }
func (s *fakeSession) ConnectedOrgURL() string               { return s.url }

func (s *fakeSession) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func readySession(org domain.OrganizationInfo, url string, scheme domain.AuthScheme) *fakeSession {
	return &fakeSession{ready: true, org: org, url: url, scheme: scheme}
}

func failedSession(msg string) *fakeSession {
	return &fakeSession{lastErr: msg}
}

type fakeProvider struct {
	mu sync.Mutex

	connString func(cs string) (domain.Session, error)
	domainFn   func(req ports.DomainRequest) (domain.Session, error)
	federation func(req ports.FederationRequest) (domain.Session, error)
	online     func(req ports.OnlineRequest) (domain.Session, error)

	connStrings    []string
	domainReqs     []ports.DomainRequest
	federationReqs []ports.FederationRequest
	onlineReqs     []ports.OnlineRequest
}

func (p *fakeProvider) FromConnectionString(_ context.Context, cs string) (domain.Session, error) {
	p.mu.Lock()
	p.connStrings = append(p.connStrings, cs)
	p.mu.Unlock()
	return p.connString(cs)
}

func (p *fakeProvider) FromDomain(_ context.Context, req ports.DomainRequest) (domain.Session, error) {
	p.mu.Lock()
	p.domainReqs = append(p.domainReqs, req)
	p.mu.Unlock()
	return p.domainFn(req)
}

func (p *fakeProvider) FromFederation(_ context.Context, req ports.FederationRequest) (domain.Session, error) {
	p.mu.Lock()
	p.federationReqs = append(p.federationReqs, req)
	p.mu.Unlock()
	return p.federation(req)
}

func (p *fakeProvider) FromOnline(_ context.Context, req ports.OnlineRequest) (domain.Session, error) {
	p.mu.Lock()
	p.onlineReqs = append(p.onlineReqs, req)
	p.mu.Unlock()
	return p.online(req)
}

type fakeDirectory struct {
	orgs      []ports.DiscoveredOrganization
	err       error
	endpoints []string
	creds     []ports.Credentials
}

func (d *fakeDirectory) Organizations(_ context.Context, endpoint string, creds ports.Credentials) ([]ports.DiscoveredOrganization, error) {
	d.endpoints = append(d.endpoints, endpoint)
	d.creds = append(d.creds, creds)
	return d.orgs, d.err
}

// prefixCipher is a reversible stand-in for the real cipher.
type prefixCipher struct{}

func (prefixCipher) Encrypt(plainText string) (string, error) {
	return "enc:" + plainText, nil
}

func (prefixCipher) Decrypt(cipherText string) (string, error) {
	if !strings.HasPrefix(cipherText, "enc:") {
		return "", errors.Join(domain.ErrDecryption, errors.New("bad prefix"))
	}
	return strings.TrimPrefix(cipherText, "enc:"), nil
}

type memoryRepo struct {
	mu       sync.Mutex
	profiles []*domain.ConnectionProfile
	updates  int
}

func (r *memoryRepo) ListProfiles(query string) ([]*domain.ConnectionProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ConnectionProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if query == "" || strings.Contains(strings.ToLower(p.ConnectionName), strings.ToLower(query)) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepo) GetProfile(name string) (*domain.ConnectionProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.ConnectionName == name {
			return p.Clone(), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *memoryRepo) AddProfile(p *domain.ConnectionProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.ConnectionName == p.ConnectionName {
			return domain.ErrProfileExists
		}
	}
	r.profiles = append(r.profiles, p.Clone())
	return nil
}

func (r *memoryRepo) UpdateProfile(p *domain.ConnectionProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.profiles {
		if *existing.ConnectionID == *p.ConnectionID {
			r.profiles[i] = p.Clone()
			r.updates++
			return nil
		}
	}
	return domain.ErrProfileNotFound
}

func (r *memoryRepo) DeleteProfile(p *domain.ConnectionProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.profiles {
		if *existing.ConnectionID == *p.ConnectionID {
			r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
			return nil
		}
	}
	return domain.ErrProfileNotFound
}
