package identity

import "strings"

// Claims is the subset of a verified OIDC claim set the reconciler cares
// about. The caller is responsible for signature verification; by the time a
// Claims value exists the assertion is trusted.
type Claims struct {
	Sub        string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
}

// ClaimsFromMap extracts the relevant fields from a raw claims map as returned
// by the OIDC verifier. Missing or non-string values become empty strings;
// validation happens in Reconcile.
func ClaimsFromMap(m map[string]interface{}) Claims {
	str := func(key string) string {
		v, _ := m[key].(string)
		return v
	}
	return Claims{
		Sub:        str("sub"),
		Email:      str("email"),
		Name:       str("name"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
	}
}

// NormalizeEmail returns the canonical form used for every email comparison
// and for storage: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
