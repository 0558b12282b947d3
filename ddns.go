package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/rs/zerolog"
)

// New constructs a Client that keeps the A and/or AAAA record of domain current.
//
// A Provider must be registered with UsingProvider, UsingCloudflare or UsingRFC2136.
// Without further options the client updates IPv4 only,
// resolves addresses with the icanhazip web services,
// keeps its cache in memory and discards log messages.
func New(domain string, options ...clientOption) (*Client, error) {
	if domain == "" {
		return nil, fmt.Errorf("ddnsd.New: domain cannot be empty")
	}
	c := &Client{
		domain:   domain,
		families: []Family{IPv4},
		logger:   zerolog.Nop(),
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ddnsd.New: option %d returned an error: %w", i, err)
		}
	}

	if c.provider == nil {
		return nil, fmt.Errorf("ddnsd.New: no DNS provider was registered and there is no default option - use ddnsd.UsingCloudflare or similar")
	}
	if c.resolver == nil {
		c.resolver = defaultResolver()
	}
	if len(c.families) == 0 {
		return nil, fmt.Errorf("ddnsd.New: at least one address family must be enabled")
	}

	// dependencies registered after WithLogger or UsingHTTPClient still receive them
	c.propagate()
	return c, nil
}

func defaultResolver() Resolver {
	return &webResolver{serviceURLs: map[Family]*url.URL{
		IPv4: {Scheme: "https", Host: "ipv4.icanhazip.com"},
		IPv6: {Scheme: "https", Host: "ipv6.icanhazip.com"},
	}}
}

type clientOption func(*Client) error

// UsingProvider registers an already constructed provider.
func UsingProvider(p Provider) clientOption {
	return func(c *Client) error {
		if p == nil {
			return errors.New("ddnsd.UsingProvider: provider cannot be nil")
		}
		c.provider = p
		return nil
	}
}

// UsingCloudflare registers a Cloudflare provider for the client's domain within zone.
// The zone is looked up immediately.
func UsingCloudflare(token, zone string, opts ...cloudflare.Option) clientOption {
	return func(c *Client) (err error) {
		if c.provider, err = NewCloudflare(token, zone, c.domain, opts...); err != nil {
			return fmt.Errorf("ddnsd.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingRFC2136 registers a provider sending signed dynamic updates for the client's domain to server.
func UsingRFC2136(server ConnectionURL, key TSIGKey, zone string) clientOption {
	return func(c *Client) (err error) {
		if c.provider, err = NewRFC2136(server, key, zone, c.domain); err != nil {
			return fmt.Errorf("ddnsd.UsingRFC2136: %w", err)
		}
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		c.resolver = resolver
		return nil
	}
}

func UsingWebResolver(ipv4URL, ipv6URL string) clientOption {
	return func(c *Client) (err error) {
		c.resolver, err = WebResolver(ipv4URL, ipv6URL)
		return err
	}
}

// WithFamilies selects the address families to keep updated.
func WithFamilies(families ...Family) clientOption {
	return func(c *Client) error {
		c.families = c.families[:0]
		seen := map[Family]bool{}
		for _, f := range families {
			if f != IPv4 && f != IPv6 {
				return fmt.Errorf("unknown address family %s", f)
			}
			if !seen[f] {
				seen[f] = true
				c.families = append(c.families, f)
			}
		}
		return nil
	}
}

// WithCacheFile persists published addresses to path.
func WithCacheFile(path string) clientOption {
	return func(c *Client) error {
		c.cachePath = path
		return nil
	}
}

func WithLogger(logger zerolog.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		return nil
	}
}

func (c *Client) propagate() {
	type setLogger interface {
		SetLogger(zerolog.Logger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	for _, dep := range []any{c.provider, c.resolver} {
		if l, ok := dep.(setLogger); ok {
			l.SetLogger(c.logger)
		}
		if h, ok := dep.(setHTTPClient); ok && c.httpClient != nil {
			h.SetHTTPClient(c.httpClient)
		}
	}
}

// Client runs update cycles for one domain.
type Client struct {
	resolver   Resolver
	provider   Provider
	families   []Family
	cachePath  string
	httpClient *http.Client
	logger     zerolog.Logger
	domain     string
}

func (c *Client) Domain() string { return c.domain }

// Families returns the enabled address families in update order.
func (c *Client) Families() []Family { return append([]Family(nil), c.families...) }

// LoadCache returns the persisted cache, or an empty one when no cache file is configured.
func (c *Client) LoadCache() Cache {
	if c.cachePath == "" {
		return Cache{}
	}
	return LoadCache(c.cachePath)
}

// Current resolves the current address of family f without publishing it.
func (c *Client) Current(ctx context.Context, f Family) (netip.Addr, error) {
	a, err := c.resolver.Resolve(ctx, f)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to query current %s address: %w", f, err)
	}
	a = a.Unmap()
	if !f.Matches(a) {
		return netip.Addr{}, fmt.Errorf("resolver returned %s for %s", a, f)
	}
	return a, nil
}

// RunDDNS runs one update cycle against cache.
//
// Each enabled family is handled on its own:
// a failure for one family does not prevent the other from being updated and persisted.
// cache only changes for families whose record was successfully updated.
func (c *Client) RunDDNS(ctx context.Context, cache *Cache) error {
	var errs []error
	for _, f := range c.families {
		if err := c.update(ctx, cache, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) update(ctx context.Context, cache *Cache, f Family) error {
	current, err := c.Current(ctx, f)
	if err != nil {
		return err
	}
	logger := c.logger.With().Str("family", f.String()).Logger()
	logger.Debug().Stringer("addr", current).Msg("fetched current IP")

	if cache.Get(f) == current {
		logger.Debug().Msgf("%s unchanged, continuing...", f)
		return nil
	}
	logger.Info().Stringer("addr", current).Str("domain", c.domain).Msgf("%s changed, setting record", f)

	if err := c.provider.SetRecord(ctx, current); err != nil {
		return fmt.Errorf("error updating %s with new %s address: %w", c.domain, f, err)
	}
	cache.Set(f, current)
	if c.cachePath == "" {
		return nil
	}
	if err := cache.Save(c.cachePath); err != nil {
		return fmt.Errorf("failed to write current %s address to cache: %w", f, err)
	}
	return nil
}

// Run loads the cache and runs an update cycle immediately and then once every interval until ctx is done.
//
// Failed cycles are logged and retried on the next tick.
func (c *Client) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("ddnsd.Run: interval must be positive; got %s", interval)
	}
	cache := c.LoadCache()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.RunDDNS(ctx, &cache); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("failed to update record")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
