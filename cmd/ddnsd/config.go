package main

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/Travis-Britz/ddnsd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "/etc/ddnsd/config.yaml"
	defaultCachePath  = "/var/cache/ddnsd/cache.yaml"
	envPrefix         = "DDNSD"
)

// Config is read once at startup and never modified afterwards.
type Config struct {
	Provider     string `mapstructure:"provider"`
	APIToken     string `mapstructure:"api_token"`
	APITokenFile string `mapstructure:"api_token_file"`
	Zone         string `mapstructure:"zone"`
	Domain       string `mapstructure:"domain"`
	IPv4         bool   `mapstructure:"ipv4"`
	IPv6         bool   `mapstructure:"ipv6"`
	// Interval is in seconds.
	Interval  int    `mapstructure:"interval"`
	CacheFile string `mapstructure:"cache_file"`

	Resolver ResolverConfig `mapstructure:"resolver"`
	RFC2136  RFC2136Config  `mapstructure:"rfc2136"`
	DNSPod   DNSPodConfig   `mapstructure:"dnspod"`
	Alidns   AlidnsConfig   `mapstructure:"alidns"`
	Log      LogConfig      `mapstructure:"log"`
}

type ResolverConfig struct {
	Method     string         `mapstructure:"method"`
	IPv4URL    string         `mapstructure:"ipv4_url"`
	IPv6URL    string         `mapstructure:"ipv6_url"`
	IPv4Server string         `mapstructure:"ipv4_server"`
	IPv6Server string         `mapstructure:"ipv6_server"`
	Interfaces []string       `mapstructure:"interfaces"`
	RouterOS   RouterOSConfig `mapstructure:"routeros"`
	Static     StaticConfig   `mapstructure:"static"`
}

type RouterOSConfig struct {
	Address   string `mapstructure:"address"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Interface string `mapstructure:"interface"`
}

type StaticConfig struct {
	IPv4 string `mapstructure:"ipv4"`
	IPv6 string `mapstructure:"ipv6"`
}

type RFC2136Config struct {
	URL     string `mapstructure:"url"`
	KeyName string `mapstructure:"key_name"`
	// Key is the base64 encoded shared secret.
	Key       string `mapstructure:"key"`
	Algorithm string `mapstructure:"algorithm"`
}

type DNSPodConfig struct {
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
}

type AlidnsConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Endpoint        string `mapstructure:"endpoint"`
}

// defaults lists every key so that each one can also be set from the environment.
var defaults = map[string]any{
	"provider":       "cloudflare",
	"api_token":      "",
	"api_token_file": "",
	"zone":           "",
	"domain":         "",
	"ipv4":           true,
	"ipv6":           false,
	"interval":       60,
	"cache_file":     defaultCachePath,

	"resolver.method":             "web",
	"resolver.ipv4_url":           ddnsd.DefaultIPv4URL,
	"resolver.ipv6_url":           ddnsd.DefaultIPv6URL,
	"resolver.ipv4_server":        ddnsd.DefaultIPv4Server,
	"resolver.ipv6_server":        ddnsd.DefaultIPv6Server,
	"resolver.interfaces":         []string{},
	"resolver.routeros.address":   "",
	"resolver.routeros.username":  "",
	"resolver.routeros.password":  "",
	"resolver.routeros.interface": "",
	"resolver.static.ipv4":        "",
	"resolver.static.ipv6":        "",

	"rfc2136.url":       "",
	"rfc2136.key_name":  "",
	"rfc2136.key":       "",
	"rfc2136.algorithm": "hmac-sha256",

	"dnspod.secret_id":  "",
	"dnspod.secret_key": "",
	"dnspod.region":     "",
	"dnspod.endpoint":   "",

	"alidns.access_key_id":     "",
	"alidns.access_key_secret": "",
	"alidns.endpoint":          ddnsd.DefaultAlidnsEndpoint,

	"log.level":                "info",
	"log.format":               "console",
	"log.output":               "stderr",
	"log.rotation.max_size":    10,
	"log.rotation.max_age":     30,
	"log.rotation.max_backups": 3,
	"log.rotation.local_time":  false,
	"log.rotation.compress":    false,
}

// loadConfig reads the YAML file at path, applies defaults and DDNSD_* environment overrides, and validates the result.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "couldn't read config file %s", path)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Domain == "" {
		return errors.New("domain cannot be empty")
	}
	if !strings.Contains(c.Domain, ".") {
		return errors.New("domain must have at least one dot")
	}
	if c.Zone == "" {
		return errors.New("zone cannot be empty")
	}
	if !c.IPv4 && !c.IPv6 {
		return errors.New("at least one of ipv4 and ipv6 must be enabled")
	}
	if c.Interval <= 0 {
		return errors.Errorf("interval must be a positive number of seconds; got %d", c.Interval)
	}

	switch c.Provider {
	case "cloudflare":
		if c.APIToken == "" && c.APITokenFile == "" {
			return errors.New("cloudflare requires api_token or api_token_file")
		}
	case "rfc2136":
		if _, err := ddnsd.ParseConnectionURL(c.RFC2136.URL); err != nil {
			return errors.Wrap(err, "rfc2136.url")
		}
		if c.RFC2136.KeyName == "" {
			return errors.New("rfc2136.key_name cannot be empty")
		}
		if _, err := base64.StdEncoding.DecodeString(c.RFC2136.Key); err != nil || c.RFC2136.Key == "" {
			return errors.New("rfc2136.key must be a base64 encoded secret")
		}
	case "dnspod":
		if c.DNSPod.SecretID == "" || c.DNSPod.SecretKey == "" {
			return errors.New("dnspod requires secret_id and secret_key")
		}
	case "alidns":
		if c.Alidns.AccessKeyID == "" || c.Alidns.AccessKeySecret == "" {
			return errors.New("alidns requires access_key_id and access_key_secret")
		}
	default:
		return errors.Errorf("unknown provider %q", c.Provider)
	}

	switch r := c.Resolver; r.Method {
	case "web", "dns", "interface":
	case "routeros":
		if r.RouterOS.Address == "" || r.RouterOS.Interface == "" {
			return errors.New("resolver.routeros requires address and interface")
		}
	case "static":
		if c.IPv4 && r.Static.IPv4 == "" {
			return errors.New("resolver.static.ipv4 is required when ipv4 is enabled")
		}
		if c.IPv6 && r.Static.IPv6 == "" {
			return errors.New("resolver.static.ipv6 is required when ipv6 is enabled")
		}
	default:
		return errors.Errorf("unknown resolver method %q", r.Method)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// IntervalDuration returns the poll interval.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// Families returns the enabled address families.
func (c *Config) Families() []ddnsd.Family {
	var f []ddnsd.Family
	if c.IPv4 {
		f = append(f, ddnsd.IPv4)
	}
	if c.IPv6 {
		f = append(f, ddnsd.IPv6)
	}
	return f
}

// token returns the Cloudflare API token, reading api_token_file when api_token is not set.
func (c *Config) token() (string, error) {
	if c.APIToken != "" {
		return c.APIToken, nil
	}
	if err := verifyPermissions(c.APITokenFile); err != nil {
		return "", err
	}
	return readKey(c.APITokenFile)
}
