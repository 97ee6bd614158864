package credentials

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver selects usable credentials from raw secret-store records.
type Resolver struct {
	appScope string
	logger   zerolog.Logger
}

// NewResolver creates a resolver scoped to the given application identifier.
// Records stored by other applications are never selected.
func NewResolver(appScope string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		appScope: appScope,
		logger:   logger.With().Str("component", "credential_resolver").Logger(),
	}
}

// Resolve filters records to this application's usable secrets and returns at
// most one credential per role, in the order the winning candidates appear in
// the listing.
//
// Rules, applied per record in listing order:
//   - records scoped to another application are skipped
//   - realms ending in "settings" classify as proxy, all others as primary
//   - records containing the separator sentinel are skipped
//   - the first surviving candidate per role wins; later candidates of the
//     same role are dropped without error
//
// The winning candidate's nested secret value is decoded once at this
// boundary. A malformed value is terminal for that role and reported via the
// returned error (a joined MalformedSecretError per failed role), but never
// prevents the other role from resolving. Callers treat a failed role as
// absent.
func (r *Resolver) Resolve(records []SecretRecord) ([]Resolved, error) {
	var (
		resolved []Resolved
		errs     []error
		seen     = map[Role]bool{}
	)

	for _, rec := range records {
		if rec.AppScope != r.appScope {
			continue
		}

		role := classifyRealm(rec.Realm)

		if strings.Contains(rec.ClearPassword, separatorSentinel) {
			r.logger.Debug().Str("realm", rec.Realm).Msg("skipping separator placeholder entry")
			continue
		}

		if seen[role] {
			// First wins; duplicates are silently dropped per the store's
			// listing-order contract.
			r.logger.Debug().Str("realm", rec.Realm).Str("role", string(role)).
				Msg("dropping duplicate credential candidate")
			continue
		}
		seen[role] = true

		value, err := decodeSecret(role, rec.ClearPassword)
		if err != nil {
			errs = append(errs, &MalformedSecretError{Realm: rec.Realm, Role: role, Err: err})
			continue
		}

		resolved = append(resolved, Resolved{Role: role, Value: value})
	}

	return resolved, errors.Join(errs...)
}

// Primary returns the primary credential value from a resolved set, or ""
// when none resolved.
func Primary(creds []Resolved) string {
	return byRole(creds, RolePrimary)
}

// ProxyPassword returns the proxy credential value from a resolved set, or ""
// when none resolved.
func ProxyPassword(creds []Resolved) string {
	return byRole(creds, RoleProxy)
}

func byRole(creds []Resolved, role Role) string {
	for _, c := range creds {
		if c.Role == role {
			return c.Value
		}
	}
	return ""
}
