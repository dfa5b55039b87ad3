package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	c := &Credential{AccessToken: "at", ExpiresAt: now.Add(time.Minute)}

	assert.False(t, c.IsExpired(now))
	assert.True(t, c.IsExpired(now.Add(time.Minute)))
	assert.Equal(t, time.Minute, c.TTL(now))
	assert.False(t, c.HasRefreshToken())
}

func TestAccount_Label(t *testing.T) {
	var nilAccount *Account
	assert.Equal(t, "", nilAccount.Label())
	assert.Equal(t, "a@b.c", (&Account{Name: "A", Email: "a@b.c"}).Label())
	assert.Equal(t, "A", (&Account{Name: "A"}).Label())
}

func TestProvider_StorageKeys(t *testing.T) {
	assert.Equal(t, "microsoft_auth_token", ProviderMicrosoft.StorageKey())
	assert.Equal(t, "google_auth_token", ProviderGoogle.StorageKey())
	assert.NotEqual(t, ProviderMicrosoft.StorageKey(), ProviderGoogle.StorageKey())
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("ms")
	require.NoError(t, err)
	assert.Equal(t, ProviderMicrosoft, p)

	p, err = ParseProvider("google")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	_, err = ParseProvider("dropbox")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestAuthState_For(t *testing.T) {
	s := AuthState{Google: true}

	assert.True(t, s.Any())
	assert.True(t, s.For(ProviderGoogle))
	assert.False(t, s.For(ProviderMicrosoft))
	assert.False(t, AuthState{}.Any())
}

func TestIsAllDay(t *testing.T) {
	assert.True(t, IsAllDay(time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)))
	assert.False(t, IsAllDay(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)))
	assert.False(t, IsAllDay(time.Date(2026, 1, 2, 23, 59, 30, 0, time.UTC)), "seconds must match too")
}

func TestCaptureInput_IsEmpty(t *testing.T) {
	assert.True(t, CaptureInput{Text: "   "}.IsEmpty())
	assert.False(t, CaptureInput{Text: "call mom"}.IsEmpty())
	assert.False(t, CaptureInput{Images: []Image{{Data: []byte{1}, MIMEType: "image/png"}}}.IsEmpty())
}
