package sighting

import "github.com/sightgate/sightgate/internal/credentials"

// Payload is the flat outbound request object. Every key is always present;
// absent source data maps to the empty string, never to a missing key.
type Payload struct {
	SightingValue   string `json:"sighting_value"`
	SightingDesc    string `json:"sighting_desc"`
	SightingTitle   string `json:"sighting_title"`
	SightingTags    string `json:"sighting_tags"`
	ConfidenceLevel string `json:"confidence_level"`
	SightingType    string `json:"sighting_type"`
	Creds           string `json:"creds"`
	ProxyPass       string `json:"proxy_pass"`
	Index           string `json:"index"`
	Host            string `json:"host"`
	Source          string `json:"source"`
	Sourcetype      string `json:"sourcetype"`
	Time            string `json:"time"`
	Field           string `json:"field"`
}

// Compose builds the outbound payload from form state, contextual tokens, and
// resolved credentials. It is pure: no branching beyond presence checks, no
// side effects, identical inputs yield identical output.
func Compose(form Form, tokens ContextTokens, creds []credentials.Resolved) Payload {
	return Payload{
		SightingValue:   form.Value,
		SightingDesc:    form.Description,
		SightingTitle:   form.Title,
		SightingTags:    form.Tags,
		ConfidenceLevel: form.ConfidenceLevel,
		SightingType:    form.Type,
		Creds:           credentials.Primary(creds),
		ProxyPass:       credentials.ProxyPassword(creds),
		Index:           tokenValue(tokens.Index),
		Host:            tokenValue(tokens.Host),
		Source:          tokenValue(tokens.Source),
		Sourcetype:      tokenValue(tokens.Sourcetype),
		Time:            tokenValue(tokens.Time),
		Field:           tokenValue(tokens.Field),
	}
}
