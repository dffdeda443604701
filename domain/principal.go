package domain

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	anonymousSuffix        = 0x04
	selfAuthenticatingTag  = 0x02
	maxPrincipalLength     = 29
	principalChecksumBytes = 4
)

var ErrInvalidPrincipal = errors.New("invalid principal")

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal identifies a caller on the ledger. The zero value is the empty
// (management) principal.
type Principal []byte

// AnonymousPrincipal is the identity of unsigned callers.
var AnonymousPrincipal = Principal{anonymousSuffix}

// SelfAuthenticating derives the principal of a DER encoded public key.
func SelfAuthenticating(der []byte) Principal {
	sum := sha256.Sum224(der)
	p := make(Principal, 0, len(sum)+1)
	p = append(p, sum[:]...)
	return append(p, selfAuthenticatingTag)
}

// ParsePrincipal decodes the dash grouped textual form and validates the checksum.
func ParsePrincipal(text string) (Principal, error) {
	raw := strings.ReplaceAll(text, "-", "")
	decoded, err := principalEncoding.DecodeString(strings.ToUpper(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPrincipal, text, err)
	}

	if len(decoded) < principalChecksumBytes {
		return nil, fmt.Errorf("%w: %s: too short", ErrInvalidPrincipal, text)
	}

	p := Principal(decoded[principalChecksumBytes:])
	if len(p) > maxPrincipalLength {
		return nil, fmt.Errorf("%w: %s: too long", ErrInvalidPrincipal, text)
	}

	if p.String() != text {
		return nil, fmt.Errorf("%w: %s: checksum or format mismatch", ErrInvalidPrincipal, text)
	}

	return p, nil
}

// String returns the canonical textual form, e.g. "2vxsx-fae".
func (p Principal) String() string {
	buf := make([]byte, principalChecksumBytes, principalChecksumBytes+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	buf = append(buf, p...)

	encoded := strings.ToLower(principalEncoding.EncodeToString(buf))

	var groups []string
	for len(encoded) > 5 {
		groups = append(groups, encoded[:5])
		encoded = encoded[5:]
	}
	groups = append(groups, encoded)

	return strings.Join(groups, "-")
}

func (p Principal) IsAnonymous() bool {
	return p.Equal(AnonymousPrincipal)
}

func (p Principal) Equal(other Principal) bool {
	return string(p) == string(other)
}

// MarshalText lets principals travel as their textual form in JSON.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
