package ddnsd

import (
	"strings"

	"github.com/pkg/errors"
)

// splitEndpoint separates an optional http:// or https:// prefix from an API endpoint.
// The scheme is returned upper case, the way both cloud SDKs spell it.
func splitEndpoint(endpoint string) (scheme, host string) {
	if host, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return "HTTP", host
	}
	return "HTTPS", strings.TrimPrefix(endpoint, "https://")
}

// relativeName returns domain relative to zone, the way DNSPod and Alidns name records.
// The zone apex is "@".
func relativeName(domain, zone string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	if zone == "" {
		return "", errors.New("zone cannot be empty")
	}
	if domain == zone {
		return "@", nil
	}
	if sub, ok := strings.CutSuffix(domain, "."+zone); ok && sub != "" {
		return sub, nil
	}
	return "", errors.Errorf("%s is not within zone %s", domain, zone)
}
