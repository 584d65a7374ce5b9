package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *User {
	return &User{
		ID:             "user-1",
		Email:          "admin@example.com",
		OrganizationID: "org-eng",
		Role:           RoleAdmin,
		IsActive:       true,
	}
}

func TestTokenIssueAndVerify(t *testing.T) {
	tm, err := NewTokenManager([]byte("test-secret"), "taskhub-test", time.Hour)
	require.NoError(t, err)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	subject, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tm1, err := NewTokenManager([]byte("secret-one"), "taskhub-test", time.Hour)
	require.NoError(t, err)
	tm2, err := NewTokenManager([]byte("secret-two"), "taskhub-test", time.Hour)
	require.NoError(t, err)

	token, err := tm1.Issue(testUser())
	require.NoError(t, err)

	_, err = tm2.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	tm, err := NewTokenManager([]byte("test-secret"), "taskhub-test", -time.Minute)
	require.NoError(t, err)

	token, err := tm.Issue(testUser())
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	tm1, err := NewTokenManager([]byte("test-secret"), "someone-else", time.Hour)
	require.NoError(t, err)
	tm2, err := NewTokenManager([]byte("test-secret"), "taskhub-test", time.Hour)
	require.NoError(t, err)

	token, err := tm1.Issue(testUser())
	require.NoError(t, err)

	_, err = tm2.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm, err := NewTokenManager([]byte("test-secret"), "taskhub-test", time.Hour)
	require.NoError(t, err)

	_, err = tm.Verify("not-a-token")
	assert.Error(t, err)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(nil, "taskhub-test", time.Hour)
	assert.Error(t, err)
}
