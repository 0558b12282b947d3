package ddnsd

import (
	"context"
	"fmt"
	"net/netip"
)

// Static constructs a resolver that always returns the given addresses.
// At most one address per family is kept; later ones replace earlier ones.
func Static(addrs ...string) (Resolver, error) {
	r := staticResolver{}
	for _, s := range addrs {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("unable to parse IP: %w", err)
		}
		a = a.Unmap()
		r[FamilyOf(a)] = a
	}
	return r, nil
}

type staticResolver map[Family]netip.Addr

func (s staticResolver) Resolve(_ context.Context, f Family) (netip.Addr, error) {
	a, ok := s[f]
	if !ok {
		return netip.Addr{}, fmt.Errorf("no static %s address configured", f)
	}
	return a, nil
}
