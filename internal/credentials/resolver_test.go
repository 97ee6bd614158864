package credentials

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppScope = "TA-eclecticiq"

func newTestResolver() *Resolver {
	return NewResolver(testAppScope, zerolog.Nop())
}

func TestResolve_ClassifiesAndExtracts(t *testing.T) {
	r := newTestResolver()

	records := []SecretRecord{
		{AppScope: testAppScope, Realm: "x_settings", ClearPassword: `{"proxy_password":"p1"}`},
		{AppScope: testAppScope, Realm: "x", ClearPassword: `{"api_key":"k1"}`},
		{AppScope: "other", Realm: "y", ClearPassword: `{"api_key":"k2"}`},
	}

	resolved, err := r.Resolve(records)
	require.NoError(t, err)

	assert.Equal(t, []Resolved{
		{Role: RoleProxy, Value: "p1"},
		{Role: RolePrimary, Value: "k1"},
	}, resolved)
}

func TestResolve_SkipsOtherApplications(t *testing.T) {
	r := newTestResolver()

	records := []SecretRecord{
		{AppScope: "search", Realm: "x", ClearPassword: `{"api_key":"k1"}`},
		{AppScope: "", Realm: "x_settings", ClearPassword: `{"proxy_password":"p1"}`},
	}

	resolved, err := r.Resolve(records)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolve_SkipsSeparatorSentinel(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name          string
		clearPassword string
	}{
		{name: "bare sentinel", clearPassword: "splunk_cred_sep"},
		{name: "sentinel inside value", clearPassword: `{"api_key":"k1splunk_cred_sepk2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []SecretRecord{
				{AppScope: testAppScope, Realm: "x", ClearPassword: tt.clearPassword},
			}

			resolved, err := r.Resolve(records)
			require.NoError(t, err)
			assert.Empty(t, resolved)
		})
	}
}

func TestResolve_RealmClassification(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name  string
		realm string
		value string
		want  Role
	}{
		{name: "settings suffix is proxy", realm: "eiq_settings", value: `{"proxy_password":"p"}`, want: RoleProxy},
		{name: "bare settings is proxy", realm: "settings", value: `{"proxy_password":"p"}`, want: RoleProxy},
		{name: "plain realm is primary", realm: "eiq_account", value: `{"api_key":"k"}`, want: RolePrimary},
		{name: "empty realm is primary", realm: "", value: `{"api_key":"k"}`, want: RolePrimary},
		{name: "settings prefix is primary", realm: "settings_eiq", value: `{"api_key":"k"}`, want: RolePrimary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := r.Resolve([]SecretRecord{
				{AppScope: testAppScope, Realm: tt.realm, ClearPassword: tt.value},
			})
			require.NoError(t, err)
			require.Len(t, resolved, 1)
			assert.Equal(t, tt.want, resolved[0].Role)
		})
	}
}

func TestResolve_FirstCandidateWins(t *testing.T) {
	r := newTestResolver()

	records := []SecretRecord{
		{AppScope: testAppScope, Realm: "a", ClearPassword: `{"api_key":"k1"}`},
		{AppScope: testAppScope, Realm: "b", ClearPassword: `{"api_key":"k2"}`},
	}

	resolved, err := r.Resolve(records)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "k1", resolved[0].Value)
}

func TestResolve_AtMostOnePerRole(t *testing.T) {
	r := newTestResolver()

	records := []SecretRecord{
		{AppScope: testAppScope, Realm: "a", ClearPassword: `{"api_key":"k1"}`},
		{AppScope: testAppScope, Realm: "a_settings", ClearPassword: `{"proxy_password":"p1"}`},
		{AppScope: testAppScope, Realm: "b", ClearPassword: `{"api_key":"k2"}`},
		{AppScope: testAppScope, Realm: "b_settings", ClearPassword: `{"proxy_password":"p2"}`},
	}

	resolved, err := r.Resolve(records)
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	counts := map[Role]int{}
	for _, c := range resolved {
		counts[c.Role]++
	}
	assert.Equal(t, 1, counts[RolePrimary])
	assert.Equal(t, 1, counts[RoleProxy])
	assert.Equal(t, "k1", Primary(resolved))
	assert.Equal(t, "p1", ProxyPassword(resolved))
}

func TestResolve_MalformedSecretIsTerminalPerRole(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name          string
		clearPassword string
	}{
		{name: "not json", clearPassword: "not-json"},
		{name: "missing field", clearPassword: `{"password":"k1"}`},
		{name: "wrong role field", clearPassword: `{"proxy_password":"p1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []SecretRecord{
				{AppScope: testAppScope, Realm: "broken", ClearPassword: tt.clearPassword},
				{AppScope: testAppScope, Realm: "ok_settings", ClearPassword: `{"proxy_password":"p2"}`},
			}

			resolved, err := r.Resolve(records)

			var malformed *MalformedSecretError
			require.Error(t, err)
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, "broken", malformed.Realm)
			assert.Equal(t, RolePrimary, malformed.Role)

			// The failing primary must not abort the proxy role.
			require.Len(t, resolved, 1)
			assert.Equal(t, Resolved{Role: RoleProxy, Value: "p2"}, resolved[0])
		})
	}
}

func TestResolve_MalformedFirstCandidateIsNotRescued(t *testing.T) {
	r := newTestResolver()

	// The role is claimed before the secret value is decoded, so a later
	// well-formed candidate of the same role never rescues it.
	records := []SecretRecord{
		{AppScope: testAppScope, Realm: "broken", ClearPassword: "not-json"},
		{AppScope: testAppScope, Realm: "backup", ClearPassword: `{"api_key":"k2"}`},
	}

	resolved, err := r.Resolve(records)

	var malformed *MalformedSecretError
	require.Error(t, err)
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "broken", malformed.Realm)

	assert.Empty(t, resolved)
	assert.Equal(t, "", Primary(resolved))
}

func TestResolve_EmptyAndNilInput(t *testing.T) {
	r := newTestResolver()

	resolved, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	resolved, err = r.Resolve([]SecretRecord{})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestHelpers_AbsentRoles(t *testing.T) {
	assert.Equal(t, "", Primary(nil))
	assert.Equal(t, "", ProxyPassword(nil))
	assert.Equal(t, "", Primary([]Resolved{{Role: RoleProxy, Value: "p"}}))
}
