package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	cs, err := ParseConnectionString(`AuthType=AD; Url = https://crm.contoso.local/contoso ;Domain=CONTOSO;Username=jdoe;Password="p;w""d"`)
	require.NoError(t, err)

	v, ok := cs.Get("url")
	assert.True(t, ok)
	assert.Equal(t, "https://crm.contoso.local/contoso", v)

	v, _ = cs.Get("PASSWORD")
	assert.Equal(t, `p;w"d`, v)
	assert.Equal(t, 5, cs.Len())
	assert.False(t, cs.Has("HomeRealmUri"))
}

func TestParseConnectionString_LastKeyWins(t *testing.T) {
	cs, err := ParseConnectionString("Url=a;url=b;;")
	require.NoError(t, err)
	v, _ := cs.Get("Url")
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, cs.Len())
}

func TestParseConnectionString_Errors(t *testing.T) {
	for _, s := range []string{"Url", "Url=a;junk", `Password="open`, `Password="x" y`, "=value"} {
		_, err := ParseConnectionString(s)
		assert.Error(t, err, s)
	}
}

func TestConnectionString_StringQuotesWhenNeeded(t *testing.T) {
	cs := &ConnectionString{}
	cs.Set("Url", "https://x")
	cs.Set("Password", "a;b")
	cs.Set("Other", `it's "q"`)
	cs.Set("Empty", "")

	out := cs.String()
	assert.Equal(t, `Url=https://x;Password="a;b";Other="it's ""q""";Empty=`, out)

	back, err := ParseConnectionString(out)
	require.NoError(t, err)
	v, _ := back.Get("Other")
	assert.Equal(t, `it's "q"`, v)
}

func TestEnsureRequireNewInstance(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Url=https://x", "Url=https://x;RequireNewInstance=True;"},
		{"Url=https://x;", "Url=https://x;RequireNewInstance=True;"},
		{"", "RequireNewInstance=True;"},
		{"Url=https://x;RequireNewInstance=False", "Url=https://x;RequireNewInstance=False"},
		{"Url=https://x;requirenewinstance=true;", "Url=https://x;requirenewinstance=true;"},
		{"Url=https://x;RequireNewInstance = True;", "Url=https://x;RequireNewInstance = True;"},
	}
	for _, tt := range tests {
		got := EnsureRequireNewInstance(tt.in)
		assert.Equal(t, tt.want, got)
		// idempotent
		again := EnsureRequireNewInstance(got)
		assert.Equal(t, got, again)
		assert.Equal(t, 1, strings.Count(strings.ToLower(again), "requirenewinstance"))
	}
}

func TestEnsureRequireNewInstanceParsesKeys(t *testing.T) {
	// a value containing the directive text is not the key
	got := EnsureRequireNewInstance("Url=https://x;Password='requirenewinstance=1'")
	assert.Equal(t, "Url=https://x;Password='requirenewinstance=1';RequireNewInstance=True;", got)
	cs, err := ParseConnectionString(got)
	require.NoError(t, err)
	v, ok := cs.Get("RequireNewInstance")
	assert.True(t, ok)
	assert.Equal(t, "True", v)

	// unparsable input falls back to a text search
	assert.Equal(t, "Url='x;RequireNewInstance=True;", EnsureRequireNewInstance("Url='x;RequireNewInstance=True;"))
}

func TestHasUsernameDirective(t *testing.T) {
	assert.True(t, HasUsernameDirective("Url=x;UserName=jdoe"))
	assert.False(t, HasUsernameDirective("Url=x;Integrated Security=true"))
}
