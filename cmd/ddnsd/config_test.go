package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Travis-Britz/ddnsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "c2VjcmV0c2VjcmV0c2VjcmV0c2VjcmV0"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
api_token: abc123
zone: example.com
domain: home.example.com
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "cloudflare", cfg.Provider)
	assert.Equal(t, "abc123", cfg.APIToken)
	assert.True(t, cfg.IPv4)
	assert.False(t, cfg.IPv6)
	assert.Equal(t, time.Minute, cfg.IntervalDuration())
	assert.Equal(t, defaultCachePath, cfg.CacheFile)
	assert.Equal(t, "web", cfg.Resolver.Method)
	assert.Equal(t, ddnsd.DefaultIPv4URL, cfg.Resolver.IPv4URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, 10, cfg.Log.Rotation.MaxSize)
	assert.Equal(t, []ddnsd.Family{ddnsd.IPv4}, cfg.Families())
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
provider: rfc2136
zone: example.com
domain: home.example.com
ipv4: true
ipv6: true
interval: 300
cache_file: /tmp/ddnsd-cache.yaml
rfc2136:
  url: tcp://[2001:db8::53]:5353
  key_name: ddns-key
  key: `+testSecret+`
resolver:
  method: static
  static:
    ipv4: 192.0.2.1
    ipv6: 2001:db8::1
log:
  level: debug
  format: json
  output: /var/log/ddnsd.log
  rotation:
    max_size: 5
    compress: true
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "rfc2136", cfg.Provider)
	assert.Equal(t, 5*time.Minute, cfg.IntervalDuration())
	assert.Equal(t, []ddnsd.Family{ddnsd.IPv4, ddnsd.IPv6}, cfg.Families())
	assert.Equal(t, "tcp://[2001:db8::53]:5353", cfg.RFC2136.URL)
	assert.Equal(t, "ddns-key", cfg.RFC2136.KeyName)
	assert.Equal(t, "hmac-sha256", cfg.RFC2136.Algorithm)
	assert.Equal(t, "192.0.2.1", cfg.Resolver.Static.IPv4)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Log.Rotation.MaxSize)
	assert.Equal(t, 3, cfg.Log.Rotation.MaxBackups)
	assert.True(t, cfg.Log.Rotation.Compress)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
api_token: abc123
zone: example.com
domain: home.example.com
`)
	t.Setenv("DDNSD_INTERVAL", "120")
	t.Setenv("DDNSD_IPV6", "true")
	t.Setenv("DDNSD_RESOLVER_METHOD", "dns")
	t.Setenv("DDNSD_LOG_LEVEL", "warn")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.IntervalDuration())
	assert.True(t, cfg.IPv6)
	assert.Equal(t, "dns", cfg.Resolver.Method)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no domain", "api_token: x\nzone: example.com\n"},
		{"domain without dot", "api_token: x\nzone: example.com\ndomain: localhost\n"},
		{"no zone", "api_token: x\ndomain: home.example.com\n"},
		{"no families", "api_token: x\nzone: example.com\ndomain: home.example.com\nipv4: false\n"},
		{"zero interval", "api_token: x\nzone: example.com\ndomain: home.example.com\ninterval: 0\n"},
		{"no token", "zone: example.com\ndomain: home.example.com\n"},
		{"unknown provider", "provider: route53\nzone: example.com\ndomain: home.example.com\n"},
		{"rfc2136 bad url", "provider: rfc2136\nzone: example.com\ndomain: home.example.com\nrfc2136:\n  url: 'udp://nope'\n  key_name: k\n  key: " + testSecret + "\n"},
		{"rfc2136 no key name", "provider: rfc2136\nzone: example.com\ndomain: home.example.com\nrfc2136:\n  url: 192.0.2.53\n  key: " + testSecret + "\n"},
		{"rfc2136 bad key", "provider: rfc2136\nzone: example.com\ndomain: home.example.com\nrfc2136:\n  url: 192.0.2.53\n  key_name: k\n  key: '%%%'\n"},
		{"dnspod no secret", "provider: dnspod\nzone: example.com\ndomain: home.example.com\ndnspod:\n  secret_id: x\n"},
		{"alidns no secret", "provider: alidns\nzone: example.com\ndomain: home.example.com\nalidns:\n  access_key_id: x\n"},
		{"unknown resolver", "api_token: x\nzone: example.com\ndomain: home.example.com\nresolver:\n  method: carrier-pigeon\n"},
		{"routeros no interface", "api_token: x\nzone: example.com\ndomain: home.example.com\nresolver:\n  method: routeros\n  routeros:\n    address: 192.0.2.1:8728\n"},
		{"static missing family", "api_token: x\nzone: example.com\ndomain: home.example.com\nipv6: true\nresolver:\n  method: static\n  static:\n    ipv4: 192.0.2.1\n"},
		{"bad log level", "api_token: x\nzone: example.com\ndomain: home.example.com\nlog:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfigTokenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, writeKey(path, "file-token"))

	cfg := &Config{APITokenFile: path}
	token, err := cfg.token()
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	cfg.APIToken = "inline-token"
	token, err = cfg.token()
	require.NoError(t, err)
	assert.Equal(t, "inline-token", token)
}
