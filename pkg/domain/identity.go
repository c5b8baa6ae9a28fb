package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Identity is the stable chat endpoint of one participant.
type Identity int64

// String returns the decimal form used for storage keys.
func (id Identity) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == 0
}

// ParseIdentity parses the decimal form produced by String.
func ParseIdentity(s string) (Identity, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	return Identity(v), nil
}

// MessageRef identifies a message inside one identity's chat.
type MessageRef int64
