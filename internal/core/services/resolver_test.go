package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/Adembc/lazycrm/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var contosoOnline = domain.OrganizationInfo{
	UniqueName:   "org1a2b3c",
	FriendlyName: "Contoso",
	Version:      "9.2.24031.180",
	Endpoints: map[domain.EndpointType]string{
		domain.EndpointOrganizationService:     "https://contoso.api.crm4.dynamics.com/XRMServices/2011/Organization.svc",
		domain.EndpointOrganizationDataService: "https://contoso.api.crm4.dynamics.com/XRMServices/2011/OrganizationData.svc",
		domain.EndpointWebApplication:          "https://contoso.crm4.dynamics.com/",
	},
}

func newTestResolver(t *testing.T, provider ports.SessionProvider, directory ports.DiscoveryDirectory) *Resolver {
	t.Helper()
	return NewResolver(zaptest.NewLogger(t).Sugar(), provider, directory, prefixCipher{})
}

func connectionStringProfile(cs string) *domain.ConnectionProfile {
	p := domain.NewConnectionProfile(true)
	p.ConnectionName = "cs"
	p.UseConnectionString = true
	p.ConnectionString = cs
	return p
}

func TestResolve_ConnectionStringIsMemoized(t *testing.T) {
	provider := &fakeProvider{connString: func(string) (domain.Session, error) {
		return readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365), nil
	}}
	r := newTestResolver(t, provider, nil)
	p := connectionStringProfile("AuthType=Office365;Url=https://contoso.crm4.dynamics.com;Username=jdoe@contoso.com;Password=x")

	first, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, provider.connStrings, 1)
}

func TestResolve_ForceNewReplacesSession(t *testing.T) {
	provider := &fakeProvider{connString: func(string) (domain.Session, error) {
		return readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365), nil
	}}
	r := newTestResolver(t, provider, nil)
	p := connectionStringProfile("Url=https://contoso.crm4.dynamics.com")

	first, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), p, true)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, p.Session())
	assert.True(t, first.(*fakeSession).isClosed())
	assert.Len(t, provider.connStrings, 2)
}

func TestResolve_ConnectionStringRequireNewInstance(t *testing.T) {
	provider := &fakeProvider{connString: func(string) (domain.Session, error) {
		return readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365), nil
	}}
	r := newTestResolver(t, provider, nil)

	p := connectionStringProfile("Url=https://contoso.crm4.dynamics.com")
	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), p, true)
	require.NoError(t, err)

	want := "Url=https://contoso.crm4.dynamics.com;RequireNewInstance=True;"
	assert.Equal(t, want, p.ConnectionString)
	assert.Equal(t, []string{want, want}, provider.connStrings)

	already := connectionStringProfile("Url=https://x;RequireNewInstance=false")
	_, err = r.Resolve(context.Background(), already, false)
	require.NoError(t, err)
	assert.Equal(t, "Url=https://x;RequireNewInstance=false", already.ConnectionString)
}

func TestResolve_ConnectionStringCopiesIdentity(t *testing.T) {
	provider := &fakeProvider{connString: func(string) (domain.Session, error) {
		return readySession(contosoOnline, "https://contoso.crm4.dynamics.com/XRMServices/2011/Organization.svc", domain.AuthSchemeOffice365), nil
	}}
	r := newTestResolver(t, provider, nil)
	p := connectionStringProfile("AuthType=Office365;Url=https://contoso.crm4.dynamics.com;UserName=jdoe@contoso.com;Password=x")

	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)

	assert.Equal(t, "Contoso", p.OrganizationFriendlyName)
	assert.Equal(t, "org1a2b3c", p.Organization)
	assert.Equal(t, "9.2.24031.180", p.OrganizationVersion)
	assert.Equal(t, 9, p.OrganizationMajorVersion())
	assert.Equal(t, 2, p.OrganizationMinorVersion())
	assert.Equal(t, contosoOnline.Endpoints[domain.EndpointOrganizationService], p.OrganizationServiceURL)
	assert.Equal(t, contosoOnline.Endpoints[domain.EndpointOrganizationDataService], p.OrganizationDataServiceURL)
	assert.Equal(t, "https://contoso.crm4.dynamics.com/", p.WebApplicationURL)
	assert.Equal(t, "contoso.crm4.dynamics.com", p.ServerName)
	assert.Equal(t, 443, p.Port())
	assert.True(t, p.UseOnline)
	assert.True(t, p.UseOsdp)
	assert.True(t, p.UseSsl)
	assert.False(t, p.UseIfd)
	assert.Equal(t, domain.AuthTypeOnlineFederation, p.AuthType)
	assert.True(t, p.IsCustomAuth)
}

func TestResolve_ConnectionStringAuthClassification(t *testing.T) {
	tests := []struct {
		scheme  domain.AuthScheme
		want    domain.AuthType
		wantIfd bool
	}{
		{domain.AuthSchemeAD, domain.AuthTypeActiveDirectory, false},
		{domain.AuthSchemeClaims, domain.AuthTypeActiveDirectory, false},
		{domain.AuthSchemeIFD, domain.AuthTypeFederation, true},
		{domain.AuthSchemeLive, domain.AuthTypeLiveID, false},
		{domain.AuthSchemeOffice365, domain.AuthTypeOnlineFederation, false},
		// unrecognized schemes keep whatever was stored
		{domain.AuthSchemeOAuth, domain.AuthTypeLiveID, false},
	}
	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			provider := &fakeProvider{connString: func(string) (domain.Session, error) {
				return readySession(domain.OrganizationInfo{}, "http://crm.contoso.local/contoso", tt.scheme), nil
			}}
			r := newTestResolver(t, provider, nil)
			p := connectionStringProfile("Url=http://crm.contoso.local/contoso")
			p.AuthType = domain.AuthTypeLiveID

			_, err := r.Resolve(context.Background(), p, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.AuthType)
			assert.Equal(t, tt.wantIfd, p.UseIfd)
			assert.False(t, p.UseOnline)
			assert.False(t, p.UseSsl)
			assert.False(t, p.IsCustomAuth)
		})
	}
}

func TestResolve_NotReadyFailsAndKeepsMetadata(t *testing.T) {
	failed := failedSession("The user authentication failed!")
	provider := &fakeProvider{connString: func(string) (domain.Session, error) { return failed, nil }}
	r := newTestResolver(t, provider, nil)
	p := connectionStringProfile("Url=https://contoso.crm4.dynamics.com")
	p.Organization = "before"
	p.AuthType = domain.AuthTypeActiveDirectory

	s, err := r.Resolve(context.Background(), p, false)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Nil(t, p.Session())
	assert.True(t, failed.isClosed())

	assert.ErrorIs(t, err, domain.ErrConnectionFailed)
	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "The user authentication failed!", connErr.Diagnostic)
	assert.Equal(t, "before", p.Organization)
	assert.Equal(t, domain.AuthTypeActiveDirectory, p.AuthType)
}

func TestResolve_ProviderErrorIsConnectionFailure(t *testing.T) {
	provider := &fakeProvider{connString: func(string) (domain.Session, error) {
		return nil, errors.New("dial tcp: no route to host")
	}}
	r := newTestResolver(t, provider, nil)

	_, err := r.Resolve(context.Background(), connectionStringProfile("Url=https://x"), false)
	assert.ErrorIs(t, err, domain.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "no route to host")
}

func onlineProfile() *domain.ConnectionProfile {
	p := domain.NewConnectionProfile(true)
	p.ConnectionName = "online"
	p.UseOnline = true
	p.UseOsdp = true
	p.UseSsl = true
	p.IsCustomAuth = true
	p.UserName = "jdoe@contoso.com"
	p.ServerName = "contoso.crm4.dynamics.com"
	p.OrganizationURLName = "contoso"
	p.OriginalURL = "https://contoso.crm4.dynamics.com"
	p.SetEncryptedSecret("enc:s3cret")
	return p
}

func TestResolve_OnlineRetriesWithDiscoveredUniqueName(t *testing.T) {
	provider := &fakeProvider{online: func(req ports.OnlineRequest) (domain.Session, error) {
		if req.Organization == "org1a2b3c" {
			return readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365), nil
		}
		return failedSession("organization not found: " + req.Organization), nil
	}}
	directory := &fakeDirectory{orgs: []ports.DiscoveredOrganization{
		{URLName: "fabrikam", UniqueName: "orgffff"},
		{URLName: "contoso", UniqueName: "org1a2b3c"},
	}}
	r := newTestResolver(t, provider, directory)
	p := onlineProfile()

	s, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, domain.AuthTypeOnlineFederation, p.AuthType)
	assert.Equal(t, "org1a2b3c", p.Organization)
	assert.Equal(t, "Contoso", p.OrganizationFriendlyName)

	require.Len(t, provider.onlineReqs, 3)
	ssl := map[bool]bool{}
	for _, req := range provider.onlineReqs[:2] {
		assert.Equal(t, "contoso", req.Organization)
		assert.Equal(t, "EMEA", req.Region)
		assert.Equal(t, "s3cret", req.Password)
		assert.True(t, req.Office365)
		ssl[req.UseSSL] = true
	}
	assert.Len(t, ssl, 2, "race must try both variants")
	assert.Equal(t, "org1a2b3c", provider.onlineReqs[2].Organization)

	assert.Equal(t, []string{"https://disco.crm4.dynamics.com/XRMServices/2011/Discovery.svc"}, directory.endpoints)
	assert.Equal(t, "s3cret", directory.creds[0].Password)
}

func TestResolve_OnlineUsesReadyRaceAttempt(t *testing.T) {
	var nonSSL atomic.Pointer[fakeSession]
	provider := &fakeProvider{online: func(req ports.OnlineRequest) (domain.Session, error) {
		if req.UseSSL {
			return failedSession("ssl variant failed"), nil
		}
		s := readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365)
		nonSSL.Store(s)
		return s, nil
	}}
	directory := &fakeDirectory{}
	r := newTestResolver(t, provider, directory)

	s, err := r.Resolve(context.Background(), onlineProfile(), false)
	require.NoError(t, err)
	assert.Same(t, nonSSL.Load(), s)
	assert.Empty(t, directory.endpoints)
	assert.Len(t, provider.onlineReqs, 2)
}

func TestResolve_OnlineWaitsForBothAttempts(t *testing.T) {
	var finished atomic.Int32
	provider := &fakeProvider{online: func(req ports.OnlineRequest) (domain.Session, error) {
		if req.UseSSL {
			time.Sleep(50 * time.Millisecond)
		}
		finished.Add(1)
		return readySession(contosoOnline, "https://contoso.crm4.dynamics.com", domain.AuthSchemeOffice365), nil
	}}
	r := newTestResolver(t, provider, nil)

	_, err := r.Resolve(context.Background(), onlineProfile(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, finished.Load())
}

func TestResolve_OnlineOrganizationNotFound(t *testing.T) {
	provider := &fakeProvider{online: func(ports.OnlineRequest) (domain.Session, error) {
		return failedSession("nope"), nil
	}}
	directory := &fakeDirectory{orgs: []ports.DiscoveredOrganization{{URLName: "fabrikam", UniqueName: "orgffff"}}}
	r := newTestResolver(t, provider, directory)
	p := onlineProfile()
	p.AuthType = domain.AuthTypeLiveID

	_, err := r.Resolve(context.Background(), p, false)
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
	var notFound *domain.OrganizationNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "contoso", notFound.URLName)
	assert.Equal(t, domain.AuthTypeLiveID, p.AuthType)
	assert.Nil(t, p.Session())
}

func TestResolve_OnlineReportsRetryFailure(t *testing.T) {
	provider := &fakeProvider{online: func(req ports.OnlineRequest) (domain.Session, error) {
		return failedSession("failed for " + req.Organization), nil
	}}
	directory := &fakeDirectory{orgs: []ports.DiscoveredOrganization{{URLName: "contoso", UniqueName: "org1a2b3c"}}}
	r := newTestResolver(t, provider, directory)

	_, err := r.Resolve(context.Background(), onlineProfile(), false)
	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "failed for org1a2b3c", connErr.Diagnostic)
}

func TestResolve_OnlineReportsRaceFailureWhenRetryHasNoSession(t *testing.T) {
	provider := &fakeProvider{online: func(req ports.OnlineRequest) (domain.Session, error) {
		if req.Organization == "org1a2b3c" {
			return nil, errors.New("transport closed")
		}
		return failedSession("race failed"), nil
	}}
	directory := &fakeDirectory{orgs: []ports.DiscoveredOrganization{{URLName: "contoso", UniqueName: "org1a2b3c"}}}
	r := newTestResolver(t, provider, directory)

	_, err := r.Resolve(context.Background(), onlineProfile(), false)
	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "race failed", connErr.Diagnostic)
}

func TestResolve_OnlineDiscoveryError(t *testing.T) {
	provider := &fakeProvider{online: func(ports.OnlineRequest) (domain.Session, error) {
		return failedSession("nope"), nil
	}}
	directory := &fakeDirectory{err: errors.New("401 unauthorized")}
	r := newTestResolver(t, provider, directory)

	_, err := r.Resolve(context.Background(), onlineProfile(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func federationProfile() *domain.ConnectionProfile {
	p := domain.NewConnectionProfile(true)
	p.ConnectionName = "ifd"
	p.UseIfd = true
	p.UseSsl = true
	p.IsCustomAuth = true
	p.UserDomain = "CONTOSO"
	p.UserName = "jdoe"
	p.HomeRealmURL = "https://adfs.contoso.com/adfs/services/trust"
	p.ServerName = "contoso.crm.contoso.com"
	port := 443
	p.ServerPort = &port
	p.OrganizationURLName = "contoso"
	p.Organization = "stored-org"
	p.OrganizationFriendlyName = "Stored"
	p.SetEncryptedSecret("enc:s3cret")
	return p
}

func TestResolve_FederationSetsAuthTypeOnly(t *testing.T) {
	provider := &fakeProvider{federation: func(ports.FederationRequest) (domain.Session, error) {
		return readySession(contosoOnline, "https://contoso.crm.contoso.com", domain.AuthSchemeIFD), nil
	}}
	r := newTestResolver(t, provider, nil)
	p := federationProfile()

	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)

	assert.Equal(t, domain.AuthTypeFederation, p.AuthType)
	// The federation branch does not copy organization identity.
	assert.Equal(t, "stored-org", p.Organization)
	assert.Equal(t, "Stored", p.OrganizationFriendlyName)
	assert.Empty(t, p.OrganizationVersion)
	assert.Empty(t, p.WebApplicationURL)

	require.Len(t, provider.federationReqs, 1)
	req := provider.federationReqs[0]
	assert.Equal(t, ports.FederationRequest{
		UserName:     "jdoe",
		Password:     "s3cret",
		Domain:       "CONTOSO",
		HomeRealmURL: "https://adfs.contoso.com/adfs/services/trust",
		ServerName:   "contoso.crm.contoso.com",
		ServerPort:   443,
		Organization: "contoso",
		UseSSL:       true,
	}, req)
}

func TestResolve_FederationSecretErrors(t *testing.T) {
	provider := &fakeProvider{federation: func(ports.FederationRequest) (domain.Session, error) {
		t.Fatal("provider must not be called without a usable secret")
		return nil, nil
	}}
	r := newTestResolver(t, provider, nil)

	p := federationProfile()
	p.EraseSecret()
	_, err := r.Resolve(context.Background(), p, false)
	assert.ErrorIs(t, err, domain.ErrMissingSecret)

	p = federationProfile()
	p.SetEncryptedSecret("garbage")
	_, err = r.Resolve(context.Background(), p, false)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func domainProfile(customAuth bool) *domain.ConnectionProfile {
	p := domain.NewConnectionProfile(true)
	p.ConnectionName = "ad"
	p.IsCustomAuth = customAuth
	p.UserDomain = "CONTOSO"
	p.UserName = "jdoe"
	p.ServerName = "crm.contoso.local"
	port := 5555
	p.ServerPort = &port
	p.OrganizationURLName = "contoso"
	p.Timeout = 90 * time.Second
	p.SetEncryptedSecret("enc:s3cret")
	return p
}

func TestResolve_DomainWithAmbientCredentials(t *testing.T) {
	session := readySession(domain.OrganizationInfo{}, "http://crm.contoso.local:5555/contoso", domain.AuthSchemeAD)
	provider := &fakeProvider{domainFn: func(ports.DomainRequest) (domain.Session, error) { return session, nil }}
	r := newTestResolver(t, provider, nil)
	p := domainProfile(false)

	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)

	require.Len(t, provider.domainReqs, 1)
	req := provider.domainReqs[0]
	assert.Equal(t, ports.DefaultCredentials(), req.Credentials)
	assert.Equal(t, "crm.contoso.local", req.ServerName)
	assert.Equal(t, 5555, req.ServerPort)
	assert.Equal(t, "contoso", req.Organization)
	assert.False(t, req.UseSSL)
	assert.Equal(t, domain.AuthTypeActiveDirectory, p.AuthType)
	assert.Equal(t, 90*time.Second, session.timeout)
}

func TestResolve_DomainWithExplicitCredentials(t *testing.T) {
	provider := &fakeProvider{domainFn: func(ports.DomainRequest) (domain.Session, error) {
		return readySession(domain.OrganizationInfo{}, "", domain.AuthSchemeAD), nil
	}}
	r := newTestResolver(t, provider, nil)

	_, err := r.Resolve(context.Background(), domainProfile(true), false)
	require.NoError(t, err)
	assert.Equal(t, ports.Credentials{UserName: "jdoe", Password: "s3cret", Domain: "CONTOSO"}, provider.domainReqs[0].Credentials)
}

func TestResolve_EmptySetSecretKeepsStoredSecret(t *testing.T) {
	provider := &fakeProvider{domainFn: func(ports.DomainRequest) (domain.Session, error) {
		return readySession(domain.OrganizationInfo{}, "", domain.AuthSchemeAD), nil
	}}
	r := newTestResolver(t, provider, nil)
	p := domainProfile(true)

	require.NoError(t, p.SetSecret(prefixCipher{}, ""))
	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)

	assert.Equal(t, "enc:s3cret", p.EncryptedSecret())
	assert.Equal(t, "s3cret", provider.domainReqs[0].Credentials.Password)
}

func TestResolve_ModePrecedence(t *testing.T) {
	provider := &fakeProvider{
		connString: func(string) (domain.Session, error) {
			return readySession(domain.OrganizationInfo{}, "http://crm.local", domain.AuthSchemeAD), nil
		},
		online: func(ports.OnlineRequest) (domain.Session, error) {
			return readySession(domain.OrganizationInfo{}, "", domain.AuthSchemeOffice365), nil
		},
		federation: func(ports.FederationRequest) (domain.Session, error) {
			return readySession(domain.OrganizationInfo{}, "", domain.AuthSchemeIFD), nil
		},
	}
	r := newTestResolver(t, provider, nil)

	p := onlineProfile()
	p.UseIfd = true
	p.UseConnectionString = true
	p.ConnectionString = "Url=http://crm.local"
	_, err := r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	assert.Len(t, provider.connStrings, 1)
	assert.Empty(t, provider.onlineReqs)

	p = onlineProfile()
	p.UseIfd = true
	_, err = r.Resolve(context.Background(), p, false)
	require.NoError(t, err)
	assert.Len(t, provider.onlineReqs, 2)
	assert.Empty(t, provider.federationReqs)
	assert.Equal(t, domain.AuthTypeOnlineFederation, p.AuthType)
}

func TestConnectionStringFor(t *testing.T) {
	r := newTestResolver(t, &fakeProvider{}, nil)

	ad := domainProfile(true)
	ad.OriginalURL = "http://crm.contoso.local:5555/contoso"
	cs, err := r.ConnectionStringFor(ad)
	require.NoError(t, err)
	assert.Equal(t, "Url=http://crm.contoso.local:5555/contoso;Domain=CONTOSO;Username=jdoe;Password=s3cret;Timeout=00:01:30", cs)

	ifd := federationProfile()
	ifd.OriginalURL = "https://contoso.crm.contoso.com"
	ifd.Timeout = 2 * time.Minute
	cs, err = r.ConnectionStringFor(ifd)
	require.NoError(t, err)
	assert.Equal(t, `Url=https://contoso.crm.contoso.com;Username=CONTOSO\jdoe;Password=s3cret;HomeRealmUri=https://adfs.contoso.com/adfs/services/trust;Timeout=00:02:00`, cs)

	integrated := domainProfile(false)
	integrated.WebApplicationURL = "http://crm.contoso.local:5555/contoso/"
	cs, err = r.ConnectionStringFor(integrated)
	require.NoError(t, err)
	assert.False(t, strings.Contains(cs, "Password"))
	assert.True(t, strings.HasPrefix(cs, "Url=http://crm.contoso.local:5555/contoso/;"))

	missing := domainProfile(true)
	missing.EraseSecret()
	_, err = r.ConnectionStringFor(missing)
	assert.ErrorIs(t, err, domain.ErrMissingSecret)

	raw := connectionStringProfile("Url=https://x;AuthType=AD")
	cs, err = r.ConnectionStringFor(raw)
	require.NoError(t, err)
	assert.Equal(t, "Url=https://x;AuthType=AD", cs)
}

func TestFormatTimeout(t *testing.T) {
	assert.Equal(t, "00:02:00", formatTimeout(2*time.Minute))
	assert.Equal(t, "01:00:05", formatTimeout(time.Hour+5*time.Second))
	assert.Equal(t, "00:00:00", formatTimeout(0))
}
