package ddnsd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// Address-echo services used when no URL is configured for a family.
const (
	DefaultIPv4URL = "https://ipv4.icanhazip.com"
	DefaultIPv6URL = "https://ipv6.icanhazip.com"
)

// WebResolver constructs a resolver which uses external web services to look up the public IP address.
//
// Each URL must speak http and return status "200 OK",
// with an address of the matching family as the first line of the response body.
// All other responses are considered an error.
//
// An empty URL leaves that family without a lookup service,
// so resolving it will fail.
// Use [DefaultIPv4URL] and [DefaultIPv6URL] for the icanhazip endpoints.
func WebResolver(ipv4URL, ipv6URL string) (Resolver, error) {
	wr := &webResolver{serviceURLs: map[Family]*url.URL{}}
	for f, u := range map[Family]string{IPv4: ipv4URL, IPv6: ipv6URL} {
		if u == "" {
			continue
		}
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s URL: %w", f, err)
		}
		wr.serviceURLs[f] = pu
	}
	return wr, nil
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs map[Family]*url.URL
}

func (wr *webResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }

// Resolve implements ddnsd.Resolver.
func (wr *webResolver) Resolve(ctx context.Context, f Family) (netip.Addr, error) {
	u, ok := wr.serviceURLs[f]
	if !ok {
		return netip.Addr{}, fmt.Errorf("no external IP lookup service was provided for %s", f)
	}
	ip, err := wr.lookup(ctx, u)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to query current %s address from %s: %w", f, u.Host, err)
	}
	if !f.Matches(ip) {
		return netip.Addr{}, fmt.Errorf("%s returned %s, which is not an %s address", u.Host, ip, f)
	}
	return ip, nil
}

// maxResponseSize bounds how much of an echo service response is read.
const maxResponseSize = 512

func (wr *webResolver) lookup(ctx context.Context, url *url.URL) (netip.Addr, error) {
	// the timeout ensures every call completes even when the caller passed context.Background
	// and the client is http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	// only the first line is used
	r := bufio.NewReader(io.LimitReader(resp.Body, maxResponseSize))
	line, _ := r.ReadString('\n')
	ip, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip.Unmap(), nil
}
