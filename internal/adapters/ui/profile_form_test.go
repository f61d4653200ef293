package ui

import (
	"testing"
	"time"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeout(t *testing.T) {
	d, err := parseTimeout("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTimeout, d)

	d, err = parseTimeout("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = parseTimeout(" 3m ")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, d)

	_, err = parseTimeout("soon")
	assert.Error(t, err)
}

func TestBuildProfileOnline(t *testing.T) {
	p, err := BuildProfile(ProfileDraft{
		Name:   " Contoso ",
		Mode:   ModeOnline,
		URL:    "https://contoso.crm4.dynamics.com",
		User:   "jdoe@contoso.com",
		Domain: "IGNORED",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Contoso", p.ConnectionName)
	assert.True(t, p.UseOnline)
	assert.True(t, p.UseOsdp)
	assert.True(t, p.UseSsl)
	assert.True(t, p.IsCustomAuth)
	assert.Equal(t, "contoso.crm4.dynamics.com", p.ServerName)
	assert.Equal(t, "contoso", p.OrganizationURLName)
	assert.Empty(t, p.UserDomain)
	assert.Nil(t, p.ServerPort)
}

func TestBuildProfileOnlineRequiresOnlineHost(t *testing.T) {
	_, err := BuildProfile(ProfileDraft{
		Name: "Contoso",
		Mode: ModeOnline,
		URL:  "https://crm.contoso.com/contoso",
	}, nil)
	assert.Error(t, err)
}

func TestBuildProfileIfdSplitsHost(t *testing.T) {
	p, err := BuildProfile(ProfileDraft{
		Name:      "Contoso IFD",
		Mode:      ModeIfd,
		URL:       "https://contoso.crm.contoso.com:444",
		User:      "jdoe",
		Domain:    "CONTOSO",
		HomeRealm: "https://sts.contoso.com/adfs/services/trust/mex",
	}, nil)
	require.NoError(t, err)

	assert.True(t, p.UseIfd)
	assert.True(t, p.IsCustomAuth)
	assert.Equal(t, "contoso", p.OrganizationURLName)
	assert.Equal(t, "crm.contoso.com", p.ServerName)
	require.NotNil(t, p.ServerPort)
	assert.Equal(t, 444, *p.ServerPort)
	assert.Equal(t, "https://sts.contoso.com/adfs/services/trust/mex", p.HomeRealmURL)
}

func TestBuildProfileActiveDirectory(t *testing.T) {
	p, err := BuildProfile(ProfileDraft{
		Name:       "On premise",
		Mode:       ModeActiveDirectory,
		URL:        "http://crmsrv:5555/Contoso/main.aspx",
		CustomAuth: false,
		Timeout:    "45",
	}, nil)
	require.NoError(t, err)

	assert.False(t, p.UseOnline)
	assert.False(t, p.UseIfd)
	assert.False(t, p.UseSsl)
	assert.False(t, p.IsCustomAuth)
	assert.Equal(t, "crmsrv", p.ServerName)
	assert.Equal(t, "Contoso", p.OrganizationURLName)
	require.NotNil(t, p.ServerPort)
	assert.Equal(t, 5555, *p.ServerPort)
	assert.Equal(t, 45*time.Second, p.Timeout)
}

func TestBuildProfileWithoutURL(t *testing.T) {
	p, err := BuildProfile(ProfileDraft{
		Name:         "Manual",
		Mode:         ModeActiveDirectory,
		Server:       "crmsrv",
		Port:         "8080",
		Organization: "Contoso",
		CustomAuth:   true,
		User:         "jdoe",
		Domain:       "CONTOSO",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "crmsrv", p.ServerName)
	assert.Equal(t, "Contoso", p.OrganizationURLName)
	require.NotNil(t, p.ServerPort)
	assert.Equal(t, 8080, *p.ServerPort)
	assert.True(t, p.IsCustomAuth)
}

func TestBuildProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		v    ProfileDraft
	}{
		{"bad port", ProfileDraft{Name: "x", Server: "crmsrv", Port: "eighty"}},
		{"bad timeout", ProfileDraft{Name: "x", Server: "crmsrv", Timeout: "forever"}},
		{"bad url", ProfileDraft{Name: "x", URL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildProfile(tt.v, nil)
			assert.Error(t, err)
		})
	}
}

func TestBuildProfileConnectionString(t *testing.T) {
	p, err := BuildProfile(ProfileDraft{
		Name:             "Raw",
		Mode:             ModeConnectionString,
		ConnectionString: " AuthType=OAuth;Url=https://contoso.crm.dynamics.com ",
		Server:           "ignored",
	}, nil)
	require.NoError(t, err)
	assert.True(t, p.UseConnectionString)
	assert.Equal(t, "AuthType=OAuth;Url=https://contoso.crm.dynamics.com", p.ConnectionString)
	assert.Empty(t, p.ServerName)
}

func TestBuildProfileEditKeepsHiddenFields(t *testing.T) {
	original := domain.NewConnectionProfile(true)
	original.ConnectionName = "Contoso"
	original.ServerName = "crmsrv"
	original.OrganizationFriendlyName = "Contoso Ltd"
	original.SetEncryptedSecret("cipher")

	v := valuesFromProfile(original)
	v.Name = "Contoso renamed"
	p, err := BuildProfile(v, original)
	require.NoError(t, err)

	assert.Equal(t, original.ConnectionID, p.ConnectionID)
	assert.Equal(t, "Contoso Ltd", p.OrganizationFriendlyName)
	assert.Equal(t, "cipher", p.EncryptedSecret())
	assert.Equal(t, "Contoso", original.ConnectionName)
}

func TestValuesFromProfileModes(t *testing.T) {
	assert.Equal(t, ModeActiveDirectory, valuesFromProfile(nil).Mode)
	assert.Equal(t, ModeOnline, valuesFromProfile(&domain.ConnectionProfile{UseOnline: true}).Mode)
	assert.Equal(t, ModeIfd, valuesFromProfile(&domain.ConnectionProfile{UseIfd: true}).Mode)
	assert.Equal(t, ModeConnectionString, valuesFromProfile(&domain.ConnectionProfile{UseConnectionString: true}).Mode)

	port := 444
	v := valuesFromProfile(&domain.ConnectionProfile{ServerPort: &port, Timeout: 90 * time.Second})
	assert.Equal(t, "444", v.Port)
	assert.Equal(t, "1m30s", v.Timeout)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", ModeActiveDirectory},
		{"AD", ModeActiveDirectory},
		{"ifd", ModeIfd},
		{" Online ", ModeOnline},
		{"connection-string", ModeConnectionString},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("kerberos")
	assert.Error(t, err)
}
