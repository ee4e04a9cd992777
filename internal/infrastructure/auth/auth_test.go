package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

func pinHash(t *testing.T, pin string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegistrationVerifier(t *testing.T) {
	repo := student.NewMemoryStore().AddProfiles(student.Profile{RegistrationNumber: "R1", Name: "Asha"})
	v := NewRegistrationVerifier(repo)
	ctx := context.Background()

	reg, err := v.Verify(ctx, Credentials{RegistrationNumber: " R1 "})
	require.NoError(t, err)
	assert.Equal(t, student.RegistrationNumber("R1"), reg)

	_, err = v.Verify(ctx, Credentials{RegistrationNumber: "R2"})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = v.Verify(ctx, Credentials{RegistrationNumber: "  "})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	repo.SetUnavailable(student.TableProfiles, true)
	_, err = v.Verify(ctx, Credentials{RegistrationNumber: "R1"})
	assert.ErrorIs(t, err, shared.ErrTableUnavailable)
}

func TestPINVerifier(t *testing.T) {
	repo := student.NewMemoryStore().AddProfiles(
		student.Profile{RegistrationNumber: "R1", PINHash: pinHash(t, "4321")},
		student.Profile{RegistrationNumber: "R2"},
	)
	ctx := context.Background()

	strict := NewPINVerifier(repo, false)
	reg, err := strict.Verify(ctx, Credentials{RegistrationNumber: "R1", PIN: "4321"})
	require.NoError(t, err)
	assert.Equal(t, student.RegistrationNumber("R1"), reg)

	_, err = strict.Verify(ctx, Credentials{RegistrationNumber: "R1", PIN: "0000"})
	assert.ErrorIs(t, err, ErrPINRequired)
	_, err = strict.Verify(ctx, Credentials{RegistrationNumber: "R1"})
	assert.ErrorIs(t, err, ErrPINRequired)
	_, err = strict.Verify(ctx, Credentials{RegistrationNumber: "R2", PIN: "1"})
	assert.ErrorIs(t, err, ErrPINRequired)

	lenient := NewPINVerifier(repo, true)
	_, err = lenient.Verify(ctx, Credentials{RegistrationNumber: "R2"})
	assert.NoError(t, err)
}

func TestHashPIN(t *testing.T) {
	h, err := HashPIN("2468")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("2468")))

	_, err = HashPIN(" ")
	assert.True(t, shared.IsMalformedInput(err))
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", "raizel", time.Hour)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, exp, err := issuer.Issue("R1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	reg, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, student.RegistrationNumber("R1"), reg)

	other, _ := NewTokenIssuer("different", "raizel", time.Hour)
	other.now = issuer.now
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	now = now.Add(2 * time.Hour)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = NewTokenIssuer("", "raizel", time.Hour)
	assert.True(t, shared.IsConfigurationMissing(err))
}
