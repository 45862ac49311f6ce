// Package identity turns verified token claims into a typed caller identity.
package identity

import (
	"fmt"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// Claims mapped onto Identity fields.
const (
	claimSubject           = "sub"
	claimPreferredUsername = "preferred_username"
	claimName              = "name"
	claimGivenName         = "given_name"
	claimFamilyName        = "family_name"
	claimEmail             = "email"
	claimPicture           = "picture"
	claimLocale            = "locale"
	claimRoles             = "roles"
	claimGroups            = "groups"
	claimRealmAccess       = "realm_access"
)

// registered token claims carry no profile information and are dropped.
var registered = map[string]struct{}{
	"iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
	"azp": {}, "typ": {}, "auth_time": {}, "session_state": {}, "sid": {},
	"scope": {}, "acr": {}, "resource_access": {}, "allowed-origins": {},
}

// Resolve coerces already-verified claims into an Identity.
// It fails closed with errs.ErrUnauthenticated when the subject is absent or a
// known claim has an unexpected shape. Resolve performs no I/O.
func Resolve(claims map[string]any) (model.Identity, error) {
	if claims == nil {
		return model.Identity{}, fmt.Errorf("%w: no claims", errs.ErrUnauthenticated)
	}
	sub, err := optString(claims, claimSubject)
	if err != nil {
		return model.Identity{}, err
	}
	if sub == "" {
		return model.Identity{}, fmt.Errorf("%w: missing %s claim", errs.ErrUnauthenticated, claimSubject)
	}

	id := model.Identity{Subject: sub}
	for key, dst := range map[string]*string{
		claimPreferredUsername: &id.PreferredUsername,
		claimName:              &id.Name,
		claimGivenName:         &id.GivenName,
		claimFamilyName:        &id.FamilyName,
		claimEmail:             &id.Email,
		claimPicture:           &id.Picture,
		claimLocale:            &id.Locale,
	} {
		if *dst, err = optString(claims, key); err != nil {
			return model.Identity{}, err
		}
	}

	roles, err := stringList(claims[claimRoles], claimRoles)
	if err != nil {
		return model.Identity{}, err
	}
	realmRoles, err := realmAccessRoles(claims[claimRealmAccess])
	if err != nil {
		return model.Identity{}, err
	}
	id.Roles = dedupe(append(roles, realmRoles...))

	groups, err := stringList(claims[claimGroups], claimGroups)
	if err != nil {
		return model.Identity{}, err
	}
	id.Groups = dedupe(groups)

	for k, v := range claims {
		if _, ok := registered[k]; ok || isMapped(k) {
			continue
		}
		if id.Extra == nil {
			id.Extra = make(map[string]any)
		}
		id.Extra[k] = v
	}
	return id, nil
}

func isMapped(key string) bool {
	switch key {
	case claimSubject, claimPreferredUsername, claimName, claimGivenName, claimFamilyName,
		claimEmail, claimPicture, claimLocale, claimRoles, claimGroups, claimRealmAccess:
		return true
	}
	return false
}

func optString(claims map[string]any, key string) (string, error) {
	v, ok := claims[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: claim %s is not a string", errs.ErrUnauthenticated, key)
	}
	return s, nil
}

func stringList(v any, key string) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: claim %s contains a non-string", errs.ErrUnauthenticated, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: claim %s is not a list", errs.ErrUnauthenticated, key)
	}
}

// realmAccessRoles reads Keycloak's {"realm_access": {"roles": [...]}}.
func realmAccessRoles(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: claim %s is not an object", errs.ErrUnauthenticated, claimRealmAccess)
	}
	return stringList(m[claimRoles], claimRealmAccess+"."+claimRoles)
}

// dedupe keeps first occurrences, drops empties and never returns nil.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
