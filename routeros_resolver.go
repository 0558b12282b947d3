package ddnsd

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
)

// RouterOSConfig locates a MikroTik router and the interface carrying the public address.
type RouterOSConfig struct {
	// Address is host:port of the API service, usually port 8728.
	Address  string
	Username string
	Password string
	// Interface is the router interface name, e.g. "pppoe-out1".
	Interface string
}

// RouterOSResolver constructs a resolver that reads the addresses assigned to an interface of a RouterOS device.
// Private, loopback and link-local addresses are skipped.
func RouterOSResolver(cfg RouterOSConfig) Resolver {
	return &routerOSResolver{cfg: cfg}
}

type routerOSResolver struct {
	cfg RouterOSConfig
}

// Resolve implements ddnsd.Resolver.
//
// The connection is closed as soon as ctx is done, which aborts a login or command in progress.
func (r *routerOSResolver) Resolve(ctx context.Context, f Family) (netip.Addr, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, fmt.Errorf("not connecting to RouterOS at %s: %w", r.cfg.Address, err)
	}
	d := net.Dialer{Timeout: 20 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", r.cfg.Address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error connecting to RouterOS at %s: %w", r.cfg.Address, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := routeros.NewClient(conn)
	if err != nil {
		conn.Close()
		return netip.Addr{}, fmt.Errorf("error starting RouterOS session with %s: %w", r.cfg.Address, err)
	}
	defer c.Close()
	if err := c.Login(r.cfg.Username, r.cfg.Password); err != nil {
		return netip.Addr{}, fmt.Errorf("error logging in to RouterOS at %s: %w", r.cfg.Address, ctxErr(ctx, err))
	}

	cmd := "/ip/address/print"
	if f == IPv6 {
		cmd = "/ipv6/address/print"
	}
	reply, err := c.Run(cmd, "?=interface="+r.cfg.Interface)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error listing %s addresses of %s: %w", f, r.cfg.Interface, ctxErr(ctx, err))
	}
	a, ok := selectAddr(sentenceAddrs(reply.Re), f, false)
	if !ok {
		return netip.Addr{}, fmt.Errorf("no public %s address found on %s", f, r.cfg.Interface)
	}
	return a, nil
}

// ctxErr prefers the context error over the read error caused by closing the connection.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// sentenceAddrs extracts the "address" prefixes (e.g. 198.51.100.7/32) of a print reply.
func sentenceAddrs(re []*proto.Sentence) []netip.Addr {
	var addrs []netip.Addr
	for _, s := range re {
		p, err := netip.ParsePrefix(s.Map["address"])
		if err != nil {
			continue
		}
		addrs = append(addrs, p.Addr())
	}
	return addrs
}
