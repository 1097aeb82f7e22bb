// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://registry.local:8080", false},
		{"valid https", "https://registry.local/api", false},
		{"empty", "", true},
		{"no host", "http://", true},
		{"bad scheme", "ftp://registry.local", true},
		{"garbage", "://x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("url", tt.url, []string{"http", "https"})
			assert.Equal(t, tt.wantErr, !v.IsValid(), v.Errors())
		})
	}
}

func TestValidator_HostPort(t *testing.T) {
	for addr, wantErr := range map[string]bool{
		":8080":          false,
		"127.0.0.1:9090": false,
		"localhost":      true,
		"host:http":      true,
		":70000":         true,
	} {
		v := New()
		v.HostPort("addr", addr)
		assert.Equal(t, wantErr, !v.IsValid(), addr)
	}
}

func TestValidator_Numbers(t *testing.T) {
	v := New()
	v.Range("r", 5, 1, 10)
	v.Positive("p", 1)
	v.Fraction("f", 0.5)
	v.PositiveDuration("d", time.Second)
	v.NonNegativeDuration("n", 0)
	require.True(t, v.IsValid())

	v.Range("r", 11, 1, 10)
	v.Positive("p", 0)
	v.Fraction("f", 1.5)
	v.PositiveDuration("d", 0)
	v.NonNegativeDuration("n", -time.Second)
	assert.Len(t, v.Errors(), 5)
}

func TestValidator_OneOfAndNotEmpty(t *testing.T) {
	v := New()
	v.OneOf("backend", "redis", []string{"memory", "redis"})
	v.NotEmpty("name", "x")
	require.NoError(t, v.Err())

	v.OneOf("backend", "etcd", []string{"memory", "redis"})
	v.NotEmpty("name", "   ")
	err := v.Err()
	require.Error(t, err)

	ve, ok := AsValidationError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, []string{"backend", "name"}, ve.Fields())
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("c", 3, func(any) error { return errors.New("odd") })
	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "validation failed for c: odd", v.Errors()[0].Error())
}

func TestValidator_ErrIsSnapshot(t *testing.T) {
	v := New()
	v.AddError("a", "bad", nil)
	err := v.Err()
	v.AddError("b", "bad", nil)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Errors(), 1)
}

func TestParseLogLevel(t *testing.T) {
	for _, l := range LogLevels {
		got, err := ParseLogLevel(l)
		require.NoError(t, err)
		assert.Equal(t, l, got.String())
	}
	_, err := ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
