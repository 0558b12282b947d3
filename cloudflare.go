package ddnsd

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/cloudflare/cloudflare-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrRecordNotFound is returned when the provider has no record of the requested type for the domain.
// Records are only updated, never created, by the HTTP API providers.
var ErrRecordNotFound = errors.New("no matching record found")

// Cloudflare implements ddnsd.Provider with the Cloudflare v4 API.
//
// It should be constructed using NewCloudflare.
type Cloudflare struct {
	api    *cloudflare.API
	zoneID string
	domain string
	logger zerolog.Logger
}

// NewCloudflare constructs a Cloudflare provider for domain.
// The zone ID is looked up by name once, so an invalid token or zone fails here rather than on the first update.
// Options are passed through to the cloudflare-go client.
func NewCloudflare(token, zone, domain string, opts ...cloudflare.Option) (*Cloudflare, error) {
	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initiate cloudflare API client")
	}
	zid, err := api.ZoneIDByName(zone)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get zone %s", zone)
	}
	return &Cloudflare{
		api:    api,
		zoneID: zid,
		domain: domain,
		logger: zerolog.Nop(),
	}, nil
}

func (cf *Cloudflare) SetLogger(logger zerolog.Logger) { cf.logger = logger }

func (cf *Cloudflare) SetHTTPClient(c *http.Client) { cloudflare.HTTPClient(c)(cf.api) }

// ZoneID returns the zone identifier resolved at construction.
func (cf *Cloudflare) ZoneID() string { return cf.zoneID }

// SetRecord implements ddnsd.Provider.
func (cf *Cloudflare) SetRecord(ctx context.Context, addr netip.Addr) error {
	if cf.api == nil {
		return errors.New("ddnsd.Cloudflare should be constructed with ddnsd.NewCloudflare")
	}
	rid, err := cf.FindRecord(ctx, cf.zoneID, cf.domain, FamilyOf(addr).RecordType())
	if err != nil {
		return errors.Wrap(err, "couldn't find record")
	}
	cf.logger.Debug().Str("record_id", rid).Msg("got record ID")
	if err := cf.UpdateRecord(ctx, cf.zoneID, rid, cf.domain, addr); err != nil {
		return errors.Wrap(err, "failed to set DNS record")
	}
	return nil
}

// FindRecord returns the ID of the first record named domain with the given type.
// Records of other types at the same name are ignored.
func (cf *Cloudflare) FindRecord(ctx context.Context, zoneID, domain, recordType string) (string, error) {
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Name: domain,
	})
	if err != nil {
		return "", errors.Wrap(err, "couldn't fetch records")
	}
	cf.logger.Debug().Int("count", len(records)).Str("domain", domain).Msg("listed records")
	for _, r := range records {
		if r.Type == recordType {
			return r.ID, nil
		}
	}
	return "", errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, domain)
}

// UpdateRecord sets the content of record recordID to addr.
// The record stays unproxied and keeps its TTL.
func (cf *Cloudflare) UpdateRecord(ctx context.Context, zoneID, recordID, domain string, addr netip.Addr) error {
	proxied := false
	rec, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    FamilyOf(addr).RecordType(),
		Name:    domain,
		Content: addr.Unmap().String(),
		Proxied: &proxied,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to update DNS record %s", recordID)
	}
	cf.logger.Info().Str("record_id", rec.ID).Int("ttl", rec.TTL).Stringer("addr", addr).Msg("updated record")
	return nil
}
