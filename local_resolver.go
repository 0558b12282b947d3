package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns an address assigned to one of the given interfaces.
// If no interfaces are provided then all interfaces will be used.
// Loopback, link-local and unspecified addresses are always skipped.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context, f Family) (netip.Addr, error) {
	addrs, err := r.addrs()
	if a, ok := selectAddr(addrs, f, true); ok {
		return a, nil
	}
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.Addr{}, fmt.Errorf("no usable %s address found on %s", f, r.describe())
}

func (r interfaceResolver) describe() string {
	if len(r.ifaces) == 0 {
		return "any interface"
	}
	return fmt.Sprint(r.ifaces)
}

func (r interfaceResolver) addrs() ([]netip.Addr, error) {
	if len(r.ifaces) == 0 {
		a, err := net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("error getting interface addresses: %w", err)
		}
		return parseInterfaceAddrs(a, "")
	}

	var addrs []netip.Addr
	var errs []error
	for _, name := range r.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		parsed, err := parseInterfaceAddrs(a, name)
		addrs = append(addrs, parsed...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return addrs, errors.Join(errs...)
}

// addr: ip+net:192.168.86.253/24
// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
func parseInterfaceAddrs(a []net.Addr, iface string) ([]netip.Addr, error) {
	var addrs []netip.Addr
	var errs []error
	for _, addr := range a {
		p, err := netip.ParsePrefix(addr.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing local ip %s for interface %q: %s", addr.String(), iface, err))
			continue
		}
		addrs = append(addrs, p.Addr())
	}
	return addrs, errors.Join(errs...)
}

// selectAddr returns the first address of family f that could be reached from other hosts.
// Private ranges are only accepted when allowPrivate is set.
func selectAddr(addrs []netip.Addr, f Family, allowPrivate bool) (netip.Addr, bool) {
	for _, a := range addrs {
		a = a.Unmap().WithZone("")
		if !f.Matches(a) {
			continue
		}
		if a.IsLoopback() || a.IsUnspecified() || a.IsLinkLocalUnicast() || a.IsMulticast() {
			continue
		}
		if a.IsPrivate() && !allowPrivate {
			continue
		}
		return a, true
	}
	return netip.Addr{}, false
}
