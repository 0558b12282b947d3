package ddnsd

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedIPv6 is returned for a connection URL whose host opens an IPv6 literal with '[' but never closes it.
var ErrMalformedIPv6 = errors.New("connection url contains an opening bracket indicating an IPv6 literal, but does not contain a closing bracket")

const defaultDNSPort = 53

// ConnectionURL locates a DNS server accepting dynamic updates,
// written as [udp://|tcp://]host[:port] where host is an IP address
// and IPv6 hosts with a port are bracketed.
type ConnectionURL struct {
	// Net is "udp" or "tcp".
	Net  string
	Addr netip.AddrPort
}

// ParseConnectionURL parses s. The scheme defaults to udp and the port to 53.
func ParseConnectionURL(s string) (ConnectionURL, error) {
	u := ConnectionURL{Net: "udp"}
	host := s
	if h, ok := strings.CutPrefix(s, "udp://"); ok {
		host = h
	} else if h, ok := strings.CutPrefix(s, "tcp://"); ok {
		host, u.Net = h, "tcp"
	}

	port := strconv.Itoa(defaultDNSPort)
	if h, ok := strings.CutPrefix(host, "["); ok {
		i := strings.LastIndexByte(h, ']')
		if i < 0 {
			return ConnectionURL{}, ErrMalformedIPv6
		}
		host = h[:i]
		if j := strings.LastIndexByte(h[i+1:], ':'); j >= 0 {
			port = h[i+1+j+1:]
		}
	} else if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host, port = host[:i], host[i+1:]
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return ConnectionURL{}, errors.Wrapf(err, "failure parsing IP address %q", host)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return ConnectionURL{}, errors.Wrapf(err, "failure parsing port %q", port)
	}
	u.Addr = netip.AddrPortFrom(ip, uint16(p))
	return u, nil
}

// String formats u as scheme://host:port, bracketing IPv6 hosts.
func (u ConnectionURL) String() string {
	return u.Net + "://" + u.Addr.String()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *ConnectionURL) UnmarshalText(b []byte) (err error) {
	*u, err = ParseConnectionURL(string(b))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (u ConnectionURL) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}
