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

package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"go.uber.org/zap"
)

const (
	organizationServicePath     = "/XRMServices/2011/Organization.svc"
	organizationDataServicePath = "/XRMServices/2011/OrganizationData.svc"
	currentOrganizationPath     = "/api/data/v9.0/RetrieveCurrentOrganization(AccessType=@p1)?@p1=Microsoft.Dynamics.CRM.EndpointAccessType'Default'"
)

// Provider builds sessions by probing the organization's web API. It checks
// that the organization answers with the given credentials and reads its
// published metadata; it does not negotiate tokens.
type Provider struct {
	client *http.Client
	logger *zap.SugaredLogger

	// onlineURL builds the organization URL of an online organization.
	onlineURL func(org, regionLabel string, useSSL bool) string
}

func NewProvider(logger *zap.SugaredLogger, client *http.Client) *Provider {
	return &Provider{
		client:    client,
		logger:    logger,
		onlineURL: defaultOnlineURL,
	}
}

func defaultOnlineURL(org, regionLabel string, useSSL bool) string {
	return fmt.Sprintf("%s://%s.%s.dynamics.com", schemeFor(useSSL), org, regionLabel)
}

func schemeFor(useSSL bool) string {
	if useSSL {
		return "https"
	}
	return "http"
}

// hostPort renders host with port unless port is zero or the scheme default.
func hostPort(host string, port int, useSSL bool) string {
	if port == 0 || (useSSL && port == 443) || (!useSSL && port == 80) {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// connectionStringAuthTypes maps the AuthType key of a connection string.
var connectionStringAuthTypes = map[string]domain.AuthScheme{
	"ad":        domain.AuthSchemeAD,
	"claims":    domain.AuthSchemeClaims,
	"ifd":       domain.AuthSchemeIFD,
	"live":      domain.AuthSchemeLive,
	"oauth":     domain.AuthSchemeOAuth,
	"office365": domain.AuthSchemeOffice365,
}

func (p *Provider) FromConnectionString(ctx context.Context, connectionString string) (domain.Session, error) {
	cs, err := domain.ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	var orgURL string
	for _, key := range []string{"Url", "ServiceUri", "Service Uri", "Server"} {
		if v, ok := cs.Get(key); ok && v != "" {
			orgURL = strings.TrimRight(v, "/")
			break
		}
	}
	if orgURL == "" {
		return nil, errors.New("connection string has no Url")
	}
	u, err := url.Parse(orgURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("connection string url %q is not absolute", orgURL)
	}

	creds := ports.DefaultCredentials()
	if user, ok := cs.Get("Username"); ok && user != "" {
		password, _ := cs.Get("Password")
		userDomain, _ := cs.Get("Domain")
		creds = ports.Credentials{UserName: user, Password: password, Domain: userDomain}
	}

	scheme := domain.AuthSchemeUnknown
	if v, ok := cs.Get("AuthType"); ok {
		scheme = connectionStringAuthTypes[strings.ToLower(strings.TrimSpace(v))]
	}
	if scheme == domain.AuthSchemeUnknown && domain.IsOnlineHost(u.Hostname()) {
		scheme = domain.AuthSchemeOffice365
	}

	return p.probe(ctx, orgURL, creds, scheme), nil
}

func (p *Provider) FromDomain(ctx context.Context, req ports.DomainRequest) (domain.Session, error) {
	if req.ServerName == "" {
		return nil, errors.New("server name is required")
	}
	orgURL := fmt.Sprintf("%s://%s/%s", schemeFor(req.UseSSL), hostPort(req.ServerName, req.ServerPort, req.UseSSL), url.PathEscape(req.Organization))
	orgURL = strings.TrimRight(orgURL, "/")

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()
	return p.probe(ctx, orgURL, req.Credentials, domain.AuthSchemeAD), nil
}

func withTimeout(ctx context.Context, req ports.DomainRequest) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Provider) FromFederation(ctx context.Context, req ports.FederationRequest) (domain.Session, error) {
	if req.ServerName == "" {
		return nil, errors.New("server name is required")
	}
	host := req.ServerName
	if req.Organization != "" {
		host = req.Organization + "." + req.ServerName
	}
	orgURL := fmt.Sprintf("%s://%s", schemeFor(req.UseSSL), hostPort(host, req.ServerPort, req.UseSSL))

	creds := ports.Credentials{UserName: req.UserName, Password: req.Password, Domain: req.Domain}
	return p.probe(ctx, orgURL, creds, domain.AuthSchemeIFD), nil
}

func (p *Provider) FromOnline(ctx context.Context, req ports.OnlineRequest) (domain.Session, error) {
	if req.Organization == "" {
		return nil, errors.New("organization is required")
	}
	orgURL := p.onlineURL(req.Organization, domain.OnlineRegionLabel(req.Region), req.UseSSL)

	scheme := domain.AuthSchemeLive
	if req.Office365 {
		scheme = domain.AuthSchemeOffice365
	}
	creds := ports.Credentials{UserName: req.UserName, Password: req.Password}
	return p.probe(ctx, orgURL, creds, scheme), nil
}

type currentOrganizationResponse struct {
	Detail struct {
		UniqueName          string `json:"UniqueName"`
		FriendlyName        string `json:"FriendlyName"`
		OrganizationVersion string `json:"OrganizationVersion"`
		URLName             string `json:"UrlName"`
		Endpoints           struct {
			Keys   []string `json:"Keys"`
			Values []string `json:"Values"`
		} `json:"Endpoints"`
	} `json:"Detail"`
}

// probe asks orgURL for its current organization. The first request is
// anonymous so the server's challenge can classify the auth scheme; creds are
// sent only when challenged. A scheme other than Unknown is kept as is.
func (p *Provider) probe(ctx context.Context, orgURL string, creds ports.Credentials, scheme domain.AuthScheme) *session {
	s := &session{orgURL: orgURL, scheme: scheme}
	target := orgURL + currentOrganizationPath

	p.logger.Debugw("probing organization", "url", orgURL, "scheme", scheme.String())

	resp, err := p.get(ctx, target, ports.DefaultCredentials())
	if err != nil {
		s.lastErr = err.Error()
		return s
	}

	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Header.Values("WWW-Authenticate")
		drain(resp)
		if s.scheme == domain.AuthSchemeUnknown {
			s.scheme = schemeFromChallenge(challenge)
		}
		if creds.UseDefault || creds.UserName == "" {
			s.lastErr = fmt.Sprintf("authentication required at %s (%s)", orgURL, strings.Join(challenge, ", "))
			return s
		}
		resp, err = p.get(ctx, target, creds)
		if err != nil {
			s.lastErr = err.Error()
			return s
		}
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		s.lastErr = fmt.Sprintf("authentication failed for user %q at %s", creds.UserName, orgURL)
		return s
	case http.StatusNotFound:
		s.lastErr = fmt.Sprintf("organization not found at %s", orgURL)
		return s
	default:
		s.lastErr = newStatusError(resp).Error()
		return s
	}

	var body currentOrganizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.lastErr = fmt.Sprintf("decode organization metadata: %v", err)
		return s
	}

	s.org = organizationInfo(orgURL, body)
	s.ready = true
	return s
}

func (p *Provider) get(ctx context.Context, target string, creds ports.Credentials) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	setCredentials(req, creds)
	return p.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// organizationInfo converts the metadata response, filling endpoints the
// server did not publish with their conventional paths under orgURL.
func organizationInfo(orgURL string, body currentOrganizationResponse) domain.OrganizationInfo {
	d := body.Detail
	info := domain.OrganizationInfo{
		UniqueName:   d.UniqueName,
		FriendlyName: d.FriendlyName,
		Version:      d.OrganizationVersion,
		Endpoints:    make(map[domain.EndpointType]string),
	}
	for i, key := range d.Endpoints.Keys {
		if i >= len(d.Endpoints.Values) {
			break
		}
		switch t := domain.EndpointType(key); t {
		case domain.EndpointWebApplication, domain.EndpointOrganizationService, domain.EndpointOrganizationDataService:
			info.Endpoints[t] = d.Endpoints.Values[i]
		}
	}

	defaults := map[domain.EndpointType]string{
		domain.EndpointWebApplication:          orgURL + "/",
		domain.EndpointOrganizationService:     orgURL + organizationServicePath,
		domain.EndpointOrganizationDataService: orgURL + organizationDataServicePath,
	}
	for t, v := range defaults {
		if info.Endpoints[t] == "" {
			info.Endpoints[t] = v
		}
	}
	return info
}

// schemeFromChallenge classifies WWW-Authenticate values.
func schemeFromChallenge(values []string) domain.AuthScheme {
	for _, v := range values {
		name := strings.ToLower(strings.TrimSpace(v))
		if i := strings.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSuffix(name, ",")
		switch name {
		case "negotiate", "ntlm", "kerberos":
			return domain.AuthSchemeAD
		case "bearer":
			return domain.AuthSchemeOAuth
		}
	}
	return domain.AuthSchemeUnknown
}
