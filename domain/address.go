package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo"
)

var ErrorInvalidAddress = fmt.Errorf("invalid address")

// ParseAccountId accepts the raw form "0:<hex>" and the user-friendly base64 form.
func ParseAccountId(s string) (tongo.AccountID, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return tongo.AccountIDFromRaw(s)
	}
	return tongo.AccountIDFromBase64Url(s)
}

// PrincipalAddress is the deterministic basechain address of a named sandbox principal.
func PrincipalAddress(name string) tongo.AccountID {
	h := sha256.Sum256([]byte("principal:" + name))
	res := tongo.AccountID{Workchain: 0}
	copy(res.Address[:], h[:])
	return res
}

// ResolveAccountId parses an address, falling back to a principal name
// made of letters, digits, '-' and '_'.
func ResolveAccountId(s string) (tongo.AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return tongo.AccountID{}, ErrorInvalidAddress
	}
	if accid, err := ParseAccountId(s); err == nil {
		return accid, nil
	}
	for _, r := range s {
		if !(r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return tongo.AccountID{}, fmt.Errorf("%w: '%v'", ErrorInvalidAddress, s)
		}
	}
	return PrincipalAddress(s), nil
}
