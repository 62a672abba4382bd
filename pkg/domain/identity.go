package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "idregistry/pkg/domain-errors"
)

// identityLen is the byte length of an account address.
const identityLen = 20

// Identity is an account address acting as a caller, owner or trusted caller.
// Invariant: the stored form is canonical ("0x" + 40 lower-case hex digits) or empty.
//
// Usage: construct via ParseIdentity at trust boundaries; direct casting bypasses
// validation and canonicalisation.
type Identity string

// ZeroIdentity is the null identity. The empty Identity is treated the same way.
const ZeroIdentity Identity = "0x0000000000000000000000000000000000000000"

// ParseIdentity constructs an Identity from external input.
//
// Accepts all-lower, all-upper or EIP-55 checksummed hex with a 0x prefix. The
// empty string parses to ZeroIdentity so callers can distinguish "absent" from
// "malformed".
//
// Errors: returns CodeInvalidInput when the value is malformed or carries a bad
// checksum.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroIdentity, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity must be 0x-prefixed")
	}
	digits := s[2:]
	if len(digits) != identityLen*2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity must be 20 bytes")
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity must be hex encoded")
	}
	lower := strings.ToLower(digits)
	if digits != lower && digits != strings.ToUpper(digits) {
		if checksum(lower) != digits {
			return "", dErrors.New(dErrors.CodeInvalidInput, "identity checksum mismatch")
		}
	}
	return Identity("0x" + lower), nil
}

// MustParseIdentity is ParseIdentity for constants and tests.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the identity is the null identity.
func (i Identity) IsZero() bool {
	return i == "" || i == ZeroIdentity
}

// Equal compares two identities, treating both null forms as equal.
func (i Identity) Equal(other Identity) bool {
	if i.IsZero() || other.IsZero() {
		return i.IsZero() && other.IsZero()
	}
	return i == other
}

// String renders the EIP-55 checksummed form.
func (i Identity) String() string {
	if i.IsZero() {
		return string(ZeroIdentity)
	}
	return "0x" + checksum(strings.TrimPrefix(string(i), "0x"))
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// checksum applies EIP-55 casing to 40 lower-case hex digits.
func checksum(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := []byte(lower)
	for idx, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[idx/2]
		if idx%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[idx] = c - 'a' + 'A'
		}
	}
	return string(out)
}
