package ddnsd

import (
	"context"
	"fmt"
	"net/netip"
)

// Family selects which address family a lookup or record targets.
type Family int

const (
	IPv4 Family = iota + 1
	IPv6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// RecordType returns the DNS record type holding addresses of this family.
func (f Family) RecordType() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}

// Matches reports whether a belongs to the family.
func (f Family) Matches(a netip.Addr) bool {
	switch f {
	case IPv4:
		return a.Is4()
	case IPv6:
		return a.Is6() && !a.Is4In6()
	}
	return false
}

// FamilyOf returns the family of a, treating IPv4-mapped IPv6 addresses as IPv4.
func FamilyOf(a netip.Addr) Family {
	if a.Unmap().Is4() {
		return IPv4
	}
	return IPv6
}

// Resolver looks up the current public address for one address family.
type Resolver interface {
	Resolve(ctx context.Context, family Family) (netip.Addr, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, family Family) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context, family Family) (netip.Addr, error) {
	return f(ctx, family)
}

// Provider publishes an address as the A or AAAA record of the domain it was constructed for.
type Provider interface {
	SetRecord(ctx context.Context, addr netip.Addr) error
}
