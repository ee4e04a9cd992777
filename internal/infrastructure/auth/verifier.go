// Package auth identifies students and issues session tokens.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// Credentials is what a client submits at login.
type Credentials struct {
	RegistrationNumber string `json:"registration_number" validate:"required,max=64"`
	PIN                string `json:"pin" validate:"omitempty,max=72"`
}

// Verifier resolves credentials to a registration number.
type Verifier interface {
	Verify(ctx context.Context, creds Credentials) (student.RegistrationNumber, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION NUMBER ONLY
// ══════════════════════════════════════════════════════════════════════════════

// RegistrationVerifier accepts any registration number that has a profile row.
type RegistrationVerifier struct {
	repo student.Repository
}

// NewRegistrationVerifier creates a RegistrationVerifier.
func NewRegistrationVerifier(repo student.Repository) *RegistrationVerifier {
	return &RegistrationVerifier{repo: repo}
}

// Verify looks the registration number up. Unknown numbers yield
// shared.ErrInvalidCredentials; an unreadable profiles table is returned as is.
func (v *RegistrationVerifier) Verify(ctx context.Context, creds Credentials) (student.RegistrationNumber, error) {
	_, reg, err := v.profile(ctx, creds)
	return reg, err
}

func (v *RegistrationVerifier) profile(ctx context.Context, creds Credentials) (*student.Profile, student.RegistrationNumber, error) {
	reg := student.RegistrationNumber(strings.TrimSpace(creds.RegistrationNumber))
	if !reg.IsValid() {
		return nil, "", shared.ErrInvalidRegistration
	}

	p, err := v.repo.GetProfile(ctx, reg)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, "", shared.ErrInvalidCredentials
		}
		return nil, "", err
	}
	return p, reg, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION NUMBER + PIN
// ══════════════════════════════════════════════════════════════════════════════

// ErrPINRequired is returned when a PIN is needed but missing or wrong.
var ErrPINRequired = shared.NewDomainError("auth", "Verify", shared.ErrUnauthorized, "invalid PIN")

// PINVerifier additionally compares the PIN against the profile's bcrypt hash.
type PINVerifier struct {
	base *RegistrationVerifier

	// allowUnset lets students without a stored hash in by number alone.
	allowUnset bool
}

// NewPINVerifier creates a PINVerifier.
func NewPINVerifier(repo student.Repository, allowUnset bool) *PINVerifier {
	return &PINVerifier{base: NewRegistrationVerifier(repo), allowUnset: allowUnset}
}

// Verify checks the registration number and then the PIN.
func (v *PINVerifier) Verify(ctx context.Context, creds Credentials) (student.RegistrationNumber, error) {
	p, reg, err := v.base.profile(ctx, creds)
	if err != nil {
		return "", err
	}

	if p.PINHash == "" {
		if v.allowUnset {
			return reg, nil
		}
		return "", ErrPINRequired
	}
	if creds.PIN == "" {
		return "", ErrPINRequired
	}

	err = bcrypt.CompareHashAndPassword([]byte(p.PINHash), []byte(creds.PIN))
	switch {
	case err == nil:
		return reg, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return "", ErrPINRequired
	default:
		return "", shared.WrapError("auth", "Verify", shared.ErrUnauthorized, "stored PIN hash is invalid", err)
	}
}

// HashPIN returns the bcrypt hash stored in the PIN_Hash column.
func HashPIN(pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", shared.NewDomainError("auth", "HashPIN", shared.ErrInvalidInput, "PIN is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
