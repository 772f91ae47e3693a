package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "iaset/pkg/domain-errors"
)

var svc = NewService("user-signing-key", "admin-signing-key", time.Hour, time.Hour)

func Test_HashPassword(t *testing.T) {
	digest, err := HashPassword("senha123")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "senha123", digest)
	assert.True(t, CheckPassword("senha123", digest))
	assert.False(t, CheckPassword("senha124", digest))
}

func Test_IssueUserToken(t *testing.T) {
	token, err := svc.IssueUserToken(42, "joao@email.com", "111.111.111-11", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.SubjectID())
	assert.Equal(t, "joao@email.com", claims.Email)
	assert.Equal(t, "111.111.111-11", claims.CPF)
	assert.Equal(t, TokenTypeUser, claims.Type)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_IssueAdminToken(t *testing.T) {
	token, err := svc.IssueAdminToken(7, "admin@email.com", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.SubjectID())
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TokenTypeAdmin, claims.Type)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := svc.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	expired := NewService("user-signing-key", "admin-signing-key", -time.Hour, -time.Hour)

	token, err := expired.IssueUserToken(1, "a@b.c", "", false)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_CrossSecretRejected(t *testing.T) {
	other := NewService("other-user-key", "other-admin-key", time.Hour, time.Hour)

	token, err := other.IssueUserToken(1, "a@b.c", "", true)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_NewResetToken(t *testing.T) {
	tok1, exp1 := NewResetToken()
	tok2, _ := NewResetToken()
	require.NotEmpty(t, tok1)
	assert.NotEqual(t, tok1, tok2)
	assert.WithinDuration(t, time.Now().Add(ResetTokenTTL), exp1, time.Minute)
}
