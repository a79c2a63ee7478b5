package service

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	svc := NewAuthService(db, nil, cfg)

	signed, err := svc.IssueToken("u1", "u1@test.local")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	// 用同一密钥能解析回来，sub 即会员UID
	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "u1@test.local", claims["email"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.NotNil(t, exp)

	// 换个密钥必须验签失败
	_, err = jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}
