package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionStringFullGrammar(t *testing.T) {
	cs, err := ParseConnectionString(
		"Endpoint=https://example.taskhub.io;Authentication=ManagedIdentity;TaskHub=orders" +
			";ClientId=11111111-1111-1111-1111-111111111111;TenantId=22222222-2222-2222-2222-222222222222" +
			";AdditionallyAllowedTenants=a,b, c",
	)
	require.NoError(t, err)
	assert.Equal(t, "https://example.taskhub.io", cs.Endpoint)
	assert.Equal(t, AuthManagedIdentity, cs.Authentication)
	assert.Equal(t, "orders", cs.TaskHub)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", cs.ClientID)
	assert.Equal(t, []string{"a", "b", "c"}, cs.AdditionallyAllowedTenants)
}

func TestParseConnectionStringCaseInsensitiveKeys(t *testing.T) {
	cs, err := ParseConnectionString("ENDPOINT=https://x;TASKHUB=hub;authentication=none")
	require.NoError(t, err)
	assert.Equal(t, AuthNone, cs.Authentication)
	assert.Equal(t, "hub", cs.TaskHub)
}

func TestParseConnectionStringMissingEndpointFails(t *testing.T) {
	_, err := ParseConnectionString("TaskHub=hub")
	require.Error(t, err)
}

func TestParseConnectionStringMissingTaskHubFails(t *testing.T) {
	_, err := ParseConnectionString("Endpoint=https://x")
	require.Error(t, err)
}

func TestParseConnectionStringUnknownAuthModeFails(t *testing.T) {
	_, err := ParseConnectionString("Endpoint=https://x;TaskHub=hub;Authentication=Bogus")
	require.Error(t, err)
}

func TestParseConnectionStringDefaultsAuthentication(t *testing.T) {
	cs, err := ParseConnectionString("Endpoint=https://x;TaskHub=hub")
	require.NoError(t, err)
	assert.Equal(t, AuthDefaultAzure, cs.Authentication)
}
