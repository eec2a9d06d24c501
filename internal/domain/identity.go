package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// ErrInvalidGUID is returned when a GUID is not exactly 16 hex digits
var ErrInvalidGUID = errors.New("invalid guid")

// GUIDLength is the number of hex digits in a port or node GUID
const GUIDLength = 16

// CanonicalID formats a 16-digit GUID as four colon-separated groups of four.
// Letter case is preserved so that ids stay byte-identical to the input.
func CanonicalID(guid string) (string, error) {
	if len(guid) != GUIDLength {
		return "", fmt.Errorf("%w: %q has %d digits", ErrInvalidGUID, guid, len(guid))
	}
	for i := 0; i < len(guid); i++ {
		if !isHexDigit(guid[i]) {
			return "", fmt.Errorf("%w: %q", ErrInvalidGUID, guid)
		}
	}
	return guid[0:4] + ":" + guid[4:8] + ":" + guid[8:12] + ":" + guid[12:16], nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DeriveHostname extracts a hostname from a node description.
// One leading single quote is skipped, then the longest prefix made of
// lowercase letters, digits and '-' is returned.
func DeriveHostname(description string) string {
	s := strings.TrimPrefix(description, "'")
	i := 0
	for i < len(s) && isHostnameChar(s[i]) {
		i++
	}
	return s[:i]
}

func isHostnameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
}

// AnonymousNamer hands out ANONYMOUS-<n> hostnames for hosts whose
// description yields no hostname. A single namer is shared by every subnet
// of a run so that names stay unique across subnets.
type AnonymousNamer struct {
	next atomic.Uint64
}

// NewAnonymousNamer creates a namer starting at ANONYMOUS-0
func NewAnonymousNamer() *AnonymousNamer {
	return &AnonymousNamer{}
}

// AnonymousPartition is the partition every anonymous hostname falls into
const AnonymousPartition = "ANONYMOUS"

// Next returns the next unused anonymous hostname
func (a *AnonymousNamer) Next() string {
	n := a.next.Add(1) - 1
	return fmt.Sprintf("%s-%d", AnonymousPartition, n)
}

// Issued returns how many names have been handed out
func (a *AnonymousNamer) Issued() uint64 {
	return a.next.Load()
}
