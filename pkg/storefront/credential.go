package storefront

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Credential is the bearer value derived from a user id.
//
// It is a reversible base64 encoding of the decimal id, kept for compatibility
// with the catalog API. It is not a secret and not a signature; deployments that
// need real authentication must swap it for a verifiable token. String and
// GoString are redacted so the value does not end up in logs.
type Credential struct {
	value string
}

// EncodeCredential derives the credential for a user id. Same id, same credential.
func EncodeCredential(id UserID) Credential {
	return Credential{value: base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(id.Int64(), 10)))}
}

// DecodeCredential reverses EncodeCredential. Used by the API side of the contract.
func DecodeCredential(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidCredential)
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: not base64", ErrInvalidCredential)
	}
	id, err := strconv.ParseInt(string(decoded), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer id", ErrInvalidCredential)
	}
	return UserID(id), nil
}

// ParseAuthorizationHeader extracts the user id from "Bearer <credential>".
func ParseAuthorizationHeader(header string) (UserID, error) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, authorizationScheme) {
		return 0, fmt.Errorf("%w: expected bearer authorization", ErrInvalidCredential)
	}
	return DecodeCredential(value)
}

// AuthorizationHeader returns the value for the Authorization header.
func (credential Credential) AuthorizationHeader() string {
	return authorizationScheme + " " + credential.value
}

// IsZero reports whether the credential was never derived.
func (credential Credential) IsZero() bool {
	return credential.value == ""
}

// String hides the credential.
func (credential Credential) String() string {
	return redactedCredential
}

// GoString hides the credential from %#v.
func (credential Credential) GoString() string {
	return redactedCredential
}
