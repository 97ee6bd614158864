// Package credentials resolves stored platform secrets into the credentials
// used to authenticate sighting deliveries: the primary API key and an
// optional outbound proxy password.
package credentials

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role classifies a resolved credential.
type Role string

const (
	// RolePrimary is the API key used against the sighting-ingestion service.
	RolePrimary Role = "primary"
	// RoleProxy is the password used for outbound proxy authentication.
	RoleProxy Role = "proxy"
)

// proxyRealmSuffix marks realms that hold proxy credentials. Everything else
// is treated as a primary API credential.
const proxyRealmSuffix = "settings"

// separatorSentinel marks multi-credential placeholder entries written by the
// host platform. Entries containing it are never usable secrets.
const separatorSentinel = "splunk_cred_sep"

// SecretRecord is one entry from the secret-store listing. The store owns the
// shape; this package only reads it.
type SecretRecord struct {
	// AppScope is the application the secret belongs to (`acl.app`).
	AppScope string
	// Realm is the namespace label the secret was stored under.
	Realm string
	// ClearPassword is the stored secret value. For usable entries it is a
	// small JSON document carrying either an api_key or a proxy_password.
	ClearPassword string
}

// Resolved is a credential extracted from a secret record. At most one
// survives resolution per role.
type Resolved struct {
	Role  Role
	Value string
}

// MalformedSecretError reports a secret whose nested value could not be
// decoded into the expected shape. It is terminal for that role's selection
// but never aborts resolution of the other role.
type MalformedSecretError struct {
	Realm string
	Role  Role
	Err   error
}

func (e *MalformedSecretError) Error() string {
	return fmt.Sprintf("malformed secret in realm %q (role %s): %v", e.Realm, e.Role, e.Err)
}

func (e *MalformedSecretError) Unwrap() error {
	return e.Err
}

// secretPayload is the tagged decode of a stored secret value. Exactly one of
// the fields is expected to be present, matching the record's role.
type secretPayload struct {
	APIKey        *string `json:"api_key"`
	ProxyPassword *string `json:"proxy_password"`
}

// classifyRealm infers the credential role from the realm naming convention.
func classifyRealm(realm string) Role {
	if strings.HasSuffix(realm, proxyRealmSuffix) {
		return RoleProxy
	}
	return RolePrimary
}

// decodeSecret extracts the role's named field from the nested secret value.
func decodeSecret(role Role, clearPassword string) (string, error) {
	var payload secretPayload
	if err := json.Unmarshal([]byte(clearPassword), &payload); err != nil {
		return "", fmt.Errorf("decode secret value: %w", err)
	}

	switch role {
	case RoleProxy:
		if payload.ProxyPassword == nil {
			return "", fmt.Errorf("secret value has no proxy_password field")
		}
		return *payload.ProxyPassword, nil
	default:
		if payload.APIKey == nil {
			return "", fmt.Errorf("secret value has no api_key field")
		}
		return *payload.APIKey, nil
	}
}
