package model

import (
	"regexp"
	"time"
)

// usernamePattern is the set of characters allowed in a username
var usernamePattern = regexp.MustCompile(`^[-.A-Za-z0-9_]*$`)

// Account is a registered user
type Account struct {
	Username     string // immutable, unique across the registry
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// ValidUsername reports whether name only uses allowed characters
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}
