package sighting

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightgate/sightgate/internal/credentials"
)

// payloadKeys is the fixed outbound key set.
var payloadKeys = []string{
	"sighting_value", "sighting_desc", "sighting_title", "sighting_tags",
	"confidence_level", "sighting_type", "creds", "proxy_pass",
	"index", "host", "source", "sourcetype", "time", "field",
}

func fullForm() Form {
	return Form{
		Value:           "1.2.3.4",
		Description:     "seen in proxy logs",
		Title:           "Suspicious IP",
		Tags:            "splunk,proxy",
		Type:            "ip",
		ConfidenceLevel: "high",
	}
}

func TestCompose_ExactKeySet(t *testing.T) {
	p := Compose(fullForm(), ContextTokens{}, nil)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Len(t, decoded, len(payloadKeys))
	for _, key := range payloadKeys {
		v, ok := decoded[key]
		require.True(t, ok, "missing key %q", key)
		_, isString := v.(string)
		assert.True(t, isString, "key %q is not a string", key)
	}
}

func TestCompose_FormFieldsCopiedVerbatim(t *testing.T) {
	p := Compose(fullForm(), ContextTokens{}, nil)

	assert.Equal(t, "1.2.3.4", p.SightingValue)
	assert.Equal(t, "seen in proxy logs", p.SightingDesc)
	assert.Equal(t, "Suspicious IP", p.SightingTitle)
	assert.Equal(t, "splunk,proxy", p.SightingTags)
	assert.Equal(t, "high", p.ConfidenceLevel)
	assert.Equal(t, "ip", p.SightingType)
}

func TestCompose_Credentials(t *testing.T) {
	tests := []struct {
		name      string
		creds     []credentials.Resolved
		wantCreds string
		wantProxy string
	}{
		{
			name: "both roles resolved",
			creds: []credentials.Resolved{
				{Role: credentials.RoleProxy, Value: "p1"},
				{Role: credentials.RolePrimary, Value: "k1"},
			},
			wantCreds: "k1",
			wantProxy: "p1",
		},
		{
			name:      "primary only",
			creds:     []credentials.Resolved{{Role: credentials.RolePrimary, Value: "k1"}},
			wantCreds: "k1",
			wantProxy: "",
		},
		{
			name:      "none resolved",
			creds:     nil,
			wantCreds: "",
			wantProxy: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compose(fullForm(), ContextTokens{}, tt.creds)
			assert.Equal(t, tt.wantCreds, p.Creds)
			assert.Equal(t, tt.wantProxy, p.ProxyPass)
		})
	}
}

func TestCompose_AbsentTokensDefaultToEmpty(t *testing.T) {
	p := Compose(fullForm(), ContextTokens{}, nil)

	assert.Equal(t, "", p.Index)
	assert.Equal(t, "", p.Host)
	assert.Equal(t, "", p.Source)
	assert.Equal(t, "", p.Sourcetype)
	assert.Equal(t, "", p.Time)
	assert.Equal(t, "", p.Field)
}

func TestCompose_UnexpandedTokensTreatedAsAbsent(t *testing.T) {
	tokens := ContextTokens{
		Index:      "$index$",
		Host:       "web-01",
		Source:     "$source$",
		Sourcetype: "access_combined",
	}

	p := Compose(fullForm(), tokens, nil)

	assert.Equal(t, "", p.Index)
	assert.Equal(t, "web-01", p.Host)
	assert.Equal(t, "", p.Source)
	assert.Equal(t, "access_combined", p.Sourcetype)
}

func TestCompose_Idempotent(t *testing.T) {
	form := fullForm()
	tokens := ContextTokens{Index: "main", Host: "web-01", Time: "1700000000"}
	creds := []credentials.Resolved{{Role: credentials.RolePrimary, Value: "k1"}}

	first := Compose(form, tokens, creds)
	second := Compose(form, tokens, creds)

	assert.Equal(t, first, second)
}
