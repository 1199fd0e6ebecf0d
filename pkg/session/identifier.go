// Package session identifies conversation sessions and holds their
// pending clarification state. A session is one chat surface: the
// local terminal, or one HTTP client. Pending entries are the bridge
// between a clarification question and the reply that resolves it.
package session

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultSessionID returns a stable identifier for the local terminal
// user, so a restarted shell continues the same conversation and can
// still answer a clarification asked moments before.
func DefaultSessionID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "local"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "desk"
	}
	return sanitizeBase(user) + "-" + shortHash(host+"/"+user)
}

var entropy = ulid.Monotonic(cryptorand.Reader, 0)

// GenerateSessionID mints a fresh identifier from a sanitized base
// name plus a ULID, for surfaces that must never share a session.
func GenerateSessionID(base string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return sanitizeBase(base) + "-" + strings.ToLower(id.String())
}

// sanitizeBase folds a display name down to lowercase letters, digits
// and dashes. Anything unusable becomes "session".
func sanitizeBase(base string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	if mapped = strings.Trim(mapped, "-"); mapped == "" {
		return "session"
	}
	return mapped
}

// shortHash digests s down to eight hex characters.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}
