// Package auth establishes caller identity. A caller is whoever holds a
// valid token; the token's subject is the identity the rotation engine sees.
package auth

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mmynk/ajo/internal/models"
)

// MaxDisplayNameLength bounds display names, in characters.
const MaxDisplayNameLength = 64

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidProfile     = errors.New("email and a display name of at most 64 characters are required")
)

// Authenticator turns credentials into users. Services depend on this, not
// on a specific credential scheme.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

// normalizeEmail trims and lowercases an address so lookups match however
// the user typed it.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateProfile(email, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if !strings.Contains(email, "@") || displayName == "" || utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return ErrInvalidProfile
	}
	return nil
}
