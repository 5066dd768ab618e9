package auth

import (
	"strings"
	"testing"
	"time"

	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "pw"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("other", hash)
	req.NoError(err)
	req.False(match)
}

func TestCompare_Invalid_Hash_Format(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("pw", "plain-sha256-hex")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "pw", "Alice"}, false},
		{"Missing username", RegisterRequest{"", "pw", "Alice"}, true},
		{"Missing password", RegisterRequest{"alice", "", "Alice"}, true},
		{"Missing nickname", RegisterRequest{"alice", "pw", ""}, true},
		{"Username too long", RegisterRequest{strings.Repeat("a", 33), "pw", "Alice"}, true},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73), "Alice"}, true},
		{"Hangul username", RegisterRequest{"앨리스", "pw", "Alice"}, false},
		{"Hangul username at rune limit", RegisterRequest{strings.Repeat("가", 32), "pw", "Alice"}, false},
		{"Non ascii nickname", RegisterRequest{"alice", "pw", "앨리스"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidData)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestToken_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken(domain.UserID(42))
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal(domain.UserID(42), claims.UserID)
}

func TestToken_Rejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		req := require.New(t)
		_, err := issuer.ValidateToken("invalid-token-string")
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		req := require.New(t)
		token, err := NewTokenIssuer("another-secret", time.Hour).GenerateToken(1)
		req.NoError(err)
		_, err = issuer.ValidateToken(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		req := require.New(t)
		token, err := NewTokenIssuer("test-secret", -time.Minute).GenerateToken(1)
		req.NoError(err)
		_, err = issuer.ValidateToken(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
