package ddnsd

import (
	"context"
	"net/netip"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultAlidnsEndpoint is the public Alibaba Cloud DNS API endpoint.
const DefaultAlidnsEndpoint = "alidns.aliyuncs.com"

// Alidns implements ddnsd.Provider with the Alibaba Cloud DNS API.
type Alidns struct {
	client *alidns.Client
	zone   string
	rr     string
	logger zerolog.Logger
}

// NewAlidns constructs an Alibaba Cloud DNS provider for domain within zone.
// An empty endpoint selects DefaultAlidnsEndpoint. The endpoint may carry an http:// or https:// prefix.
func NewAlidns(accessKeyID, accessKeySecret, endpoint, zone, domain string) (*Alidns, error) {
	rr, err := relativeName(domain, zone)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		endpoint = DefaultAlidnsEndpoint
	}
	protocol, host := splitEndpoint(endpoint)
	c, err := alidns.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
		Endpoint:        tea.String(host),
		Protocol:        tea.String(protocol),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initiate alidns API client")
	}
	return &Alidns{client: c, zone: zone, rr: rr, logger: zerolog.Nop()}, nil
}

func (p *Alidns) SetLogger(logger zerolog.Logger) { p.logger = logger }

// SetRecord implements ddnsd.Provider.
//
// The SDK calls are not cancellable, so ctx is only checked before each request.
func (p *Alidns) SetRecord(ctx context.Context, addr netip.Addr) error {
	rid, value, err := p.FindRecord(ctx, FamilyOf(addr).RecordType())
	if err != nil {
		return errors.Wrap(err, "couldn't find record")
	}
	p.logger.Debug().Str("record_id", rid).Msg("got record ID")
	// the API rejects updates that do not change the value
	if value == addr.Unmap().String() {
		p.logger.Debug().Str("record_id", rid).Msg("record already up to date")
		return nil
	}
	if err := p.UpdateRecord(ctx, rid, addr); err != nil {
		return errors.Wrap(err, "failed to set DNS record")
	}
	return nil
}

// FindRecord returns the ID and current value of the first record of the given type
// whose RR equals the provider's host record.
// The API matches RRKeyWord loosely, so the RR is compared again here.
func (p *Alidns) FindRecord(ctx context.Context, recordType string) (id, value string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	resp, err := p.client.DescribeDomainRecords(&alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(p.zone),
		RRKeyWord:  tea.String(p.rr),
		Type:       tea.String(recordType),
	})
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't fetch records")
	}
	if resp.Body == nil || resp.Body.DomainRecords == nil {
		return "", "", errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, p.rr)
	}
	for _, r := range resp.Body.DomainRecords.Record {
		if tea.StringValue(r.RR) == p.rr && tea.StringValue(r.Type) == recordType && r.RecordId != nil {
			return *r.RecordId, tea.StringValue(r.Value), nil
		}
	}
	return "", "", errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, p.rr)
}

// UpdateRecord sets the value of record recordID to addr.
func (p *Alidns) UpdateRecord(ctx context.Context, recordID string, addr netip.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.client.UpdateDomainRecord(&alidns.UpdateDomainRecordRequest{
		RecordId: tea.String(recordID),
		RR:       tea.String(p.rr),
		Type:     tea.String(FamilyOf(addr).RecordType()),
		Value:    tea.String(addr.Unmap().String()),
	})
	if err != nil {
		return errors.Wrapf(err, "unable to update DNS record %s", recordID)
	}
	p.logger.Info().Str("record_id", recordID).Stringer("addr", addr).Msg("updated record")
	return nil
}
