package ddnsd

import (
	"context"
	"encoding/base64"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// recordTTL is the TTL of every record this package creates.
const recordTTL = 60

// tsigFudge is the allowed clock skew, in seconds, for signed requests.
const tsigFudge = 60

var tsigAlgorithms = map[string]string{
	"hmac-md5":    dns.HmacMD5,
	"hmac-sha1":   dns.HmacSHA1,
	"hmac-sha224": dns.HmacSHA224,
	"hmac-sha256": dns.HmacSHA256,
	"hmac-sha384": dns.HmacSHA384,
	"hmac-sha512": dns.HmacSHA512,
}

// TSIGKey is a shared secret used to sign dynamic updates.
type TSIGKey struct {
	Name string
	// Secret is base64 encoded.
	Secret string
	// Algorithm is one of hmac-md5, hmac-sha1, hmac-sha224, hmac-sha256, hmac-sha384 or hmac-sha512.
	// Empty means hmac-sha256.
	Algorithm string
}

// RFC2136 publishes records with signed dynamic updates to a DNS server.
type RFC2136 struct {
	client    *dns.Client
	server    string
	keyName   string
	algorithm string
	zone      string
	domain    string
	logger    zerolog.Logger
}

// NewRFC2136 constructs a provider that updates domain within zone by sending UPDATE messages to server.
func NewRFC2136(server ConnectionURL, key TSIGKey, zone, domain string) (*RFC2136, error) {
	if !server.Addr.IsValid() {
		return nil, errors.New("rfc2136: server address is required")
	}
	if key.Name == "" {
		return nil, errors.New("rfc2136: key name is required")
	}
	if _, err := base64.StdEncoding.DecodeString(key.Secret); err != nil {
		return nil, errors.Wrap(err, "rfc2136: key is not valid base64")
	}
	alg := strings.ToLower(strings.TrimSuffix(key.Algorithm, "."))
	if alg == "" {
		alg = "hmac-sha256"
	}
	algorithm, ok := tsigAlgorithms[alg]
	if !ok {
		return nil, errors.Errorf("rfc2136: unsupported TSIG algorithm %q", key.Algorithm)
	}
	zone, domain = dns.Fqdn(zone), dns.Fqdn(domain)
	if !dns.IsSubDomain(zone, domain) {
		return nil, errors.Errorf("rfc2136: %s is not within zone %s", domain, zone)
	}

	keyName := dns.Fqdn(key.Name)
	return &RFC2136{
		client: &dns.Client{
			Net:        server.Net,
			Timeout:    10 * time.Second,
			TsigSecret: map[string]string{keyName: key.Secret},
		},
		server:    server.Addr.String(),
		keyName:   keyName,
		algorithm: algorithm,
		zone:      zone,
		domain:    domain,
		logger:    zerolog.Nop(),
	}, nil
}

func (u *RFC2136) SetLogger(logger zerolog.Logger) { u.logger = logger }

// SetRecord implements ddnsd.Provider.
func (u *RFC2136) SetRecord(ctx context.Context, addr netip.Addr) error {
	addr = addr.Unmap()
	hdr := dns.RR_Header{Name: u.domain, Class: dns.ClassINET, Ttl: recordTTL}
	var rr dns.RR
	if addr.Is4() {
		hdr.Rrtype = dns.TypeA
		rr = &dns.A{Hdr: hdr, A: addr.AsSlice()}
	} else {
		hdr.Rrtype = dns.TypeAAAA
		rr = &dns.AAAA{Hdr: hdr, AAAA: addr.AsSlice()}
	}
	if err := u.Replace(ctx, rr, u.domain, u.zone); err != nil {
		return errors.Wrapf(err, "failed to replace %s record", FamilyOf(addr).RecordType())
	}
	return nil
}

// Replace deletes the RRset of rr's type at name within origin and then creates rr with a TTL of 60 seconds.
//
// The two steps are separate updates.
// If the second one fails the name is left without a record of that type until the next successful call.
func (u *RFC2136) Replace(ctx context.Context, rr dns.RR, name, origin string) error {
	name, origin = dns.Fqdn(name), dns.Fqdn(origin)
	rr = dns.Copy(rr)
	rr.Header().Name = name
	rr.Header().Class = dns.ClassINET
	rr.Header().Ttl = recordTTL

	del := new(dns.Msg)
	del.SetUpdate(origin)
	del.RemoveRRset([]dns.RR{rr})
	if err := u.exchange(ctx, del); err != nil {
		return errors.Wrap(err, "failed to delete old record")
	}
	u.logger.Debug().Str("name", name).Str("type", dns.TypeToString[rr.Header().Rrtype]).Msg("deleted record set")

	create := new(dns.Msg)
	create.SetUpdate(origin)
	create.RRsetNotUsed([]dns.RR{rr})
	create.Insert([]dns.RR{rr})
	if err := u.exchange(ctx, create); err != nil {
		return errors.Wrap(err, "failed to set new record")
	}
	u.logger.Debug().Str("record", rr.String()).Msg("created record")
	return nil
}

func (u *RFC2136) exchange(ctx context.Context, m *dns.Msg) error {
	m.SetTsig(u.keyName, u.algorithm, tsigFudge, time.Now().Unix())
	r, _, err := u.client.ExchangeContext(ctx, m, u.server)
	if err != nil {
		return err
	}
	if r.Rcode != dns.RcodeSuccess {
		return errors.Errorf("server %s answered %s", u.server, dns.RcodeToString[r.Rcode])
	}
	return nil
}
