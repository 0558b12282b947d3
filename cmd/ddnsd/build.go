package main

import (
	"net/http"
	"time"

	"github.com/Travis-Britz/ddnsd"
	"github.com/cloudflare/cloudflare-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// buildClient wires the provider and resolver selected by cfg into a ddnsd.Client.
// Extra cloudflare options are only used by the cloudflare provider.
func buildClient(cfg *Config, logger zerolog.Logger, cfOpts ...cloudflare.Option) (*ddnsd.Client, error) {
	provider, err := buildProvider(cfg, cfOpts...)
	if err != nil {
		return nil, err
	}
	resolver, err := buildResolver(cfg.Resolver)
	if err != nil {
		return nil, err
	}
	return ddnsd.New(cfg.Domain,
		ddnsd.UsingProvider(provider),
		ddnsd.UsingResolver(resolver),
		ddnsd.WithFamilies(cfg.Families()...),
		ddnsd.WithCacheFile(cfg.CacheFile),
		ddnsd.WithLogger(logger),
		ddnsd.UsingHTTPClient(httpClient),
	)
}

func buildProvider(cfg *Config, cfOpts ...cloudflare.Option) (ddnsd.Provider, error) {
	switch cfg.Provider {
	case "cloudflare":
		token, err := cfg.token()
		if err != nil {
			return nil, errors.Wrap(err, "couldn't read api token")
		}
		opts := append([]cloudflare.Option{cloudflare.HTTPClient(httpClient)}, cfOpts...)
		return ddnsd.NewCloudflare(token, cfg.Zone, cfg.Domain, opts...)
	case "rfc2136":
		u, err := ddnsd.ParseConnectionURL(cfg.RFC2136.URL)
		if err != nil {
			return nil, err
		}
		return ddnsd.NewRFC2136(u, ddnsd.TSIGKey{
			Name:      cfg.RFC2136.KeyName,
			Secret:    cfg.RFC2136.Key,
			Algorithm: cfg.RFC2136.Algorithm,
		}, cfg.Zone, cfg.Domain)
	case "dnspod":
		return ddnsd.NewDNSPod(cfg.DNSPod.SecretID, cfg.DNSPod.SecretKey, cfg.DNSPod.Region, cfg.DNSPod.Endpoint, cfg.Zone, cfg.Domain)
	case "alidns":
		return ddnsd.NewAlidns(cfg.Alidns.AccessKeyID, cfg.Alidns.AccessKeySecret, cfg.Alidns.Endpoint, cfg.Zone, cfg.Domain)
	}
	return nil, errors.Errorf("unknown provider %q", cfg.Provider)
}

func buildResolver(cfg ResolverConfig) (ddnsd.Resolver, error) {
	switch cfg.Method {
	case "web", "":
		return ddnsd.WebResolver(cfg.IPv4URL, cfg.IPv6URL)
	case "dns":
		return ddnsd.DNSResolver(cfg.IPv4Server, cfg.IPv6Server), nil
	case "interface":
		return ddnsd.InterfaceResolver(cfg.Interfaces...), nil
	case "routeros":
		return ddnsd.RouterOSResolver(ddnsd.RouterOSConfig{
			Address:   cfg.RouterOS.Address,
			Username:  cfg.RouterOS.Username,
			Password:  cfg.RouterOS.Password,
			Interface: cfg.RouterOS.Interface,
		}), nil
	case "static":
		var addrs []string
		for _, a := range []string{cfg.Static.IPv4, cfg.Static.IPv6} {
			if a != "" {
				addrs = append(addrs, a)
			}
		}
		return ddnsd.Static(addrs...)
	}
	return nil, errors.Errorf("unknown resolver method %q", cfg.Method)
}
