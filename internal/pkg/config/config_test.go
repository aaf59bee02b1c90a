package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpire.Duration())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_EmptySecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": secret}))
		require.Error(t, err, "secret %q", secret)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":  "s",
		"JWT_EXPIRE":  "12h",
		"ENV":         "production",
		"BCRYPT_COST": "12",
		"REDIS_ADDR":  "localhost:6379",
	}))
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Auth.JWTExpire.Duration())
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.IsProduction())
}

func TestTokenLifetime_EnvDecode(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "90m", want: 90 * time.Minute},
		{in: "0d", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tc := range cases {
		var l TokenLifetime
		err := l.EnvDecode(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, l.Duration(), tc.in)
	}
}
