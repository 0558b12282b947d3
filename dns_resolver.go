package ddnsd

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// Servers answering the whoami query when none is configured for a family.
const (
	DefaultIPv4Server = "1.1.1.1:53"
	DefaultIPv6Server = "[2606:4700:4700::1111]:53"
)

const whoamiName = "whoami.cloudflare."

// DNSResolver constructs a resolver that asks a DNS server which address the query came from.
// It sends a CHAOS class TXT query for whoami.cloudflare, which Cloudflare's public resolvers answer
// with the source address of the request.
//
// Servers are host:port; an empty server selects the default for that family.
func DNSResolver(ipv4Server, ipv6Server string) Resolver {
	if ipv4Server == "" {
		ipv4Server = DefaultIPv4Server
	}
	if ipv6Server == "" {
		ipv6Server = DefaultIPv6Server
	}
	return &dnsResolver{
		client:  &dns.Client{Net: "udp", Timeout: 5 * time.Second},
		servers: map[Family]string{IPv4: ipv4Server, IPv6: ipv6Server},
	}
}

type dnsResolver struct {
	client  *dns.Client
	servers map[Family]string
}

// Resolve implements ddnsd.Resolver.
func (r *dnsResolver) Resolve(ctx context.Context, f Family) (netip.Addr, error) {
	server := r.servers[f]
	m := new(dns.Msg)
	m.SetQuestion(whoamiName, dns.TypeTXT)
	m.Question[0].Qclass = dns.ClassCHAOS

	resp, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("whoami query to %s failed: %w", server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("whoami query to %s returned %s", server, dns.RcodeToString[resp.Rcode])
	}
	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok || len(txt.Txt) == 0 {
			continue
		}
		ip, err := netip.ParseAddr(txt.Txt[0])
		if err != nil {
			return netip.Addr{}, fmt.Errorf("error parsing IP address from whoami answer: %w", err)
		}
		ip = ip.Unmap()
		if !f.Matches(ip) {
			return netip.Addr{}, fmt.Errorf("%s answered %s, which is not an %s address", server, ip, f)
		}
		return ip, nil
	}
	return netip.Addr{}, fmt.Errorf("whoami query to %s returned no TXT answer", server)
}
