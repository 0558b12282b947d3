package ddnsd

import (
	"context"
	"net/netip"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/regions"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"
)

const dnspodNoRecords = "ResourceNotFound.NoDataOfRecord"

// DNSPod implements ddnsd.Provider with the Tencent Cloud DNSPod API.
type DNSPod struct {
	client    *dnspod.Client
	zone      string
	subdomain string
	logger    zerolog.Logger
}

// NewDNSPod constructs a DNSPod provider for domain within zone.
// An empty region selects ap-shanghai and an empty endpoint selects the SDK default.
// The endpoint may carry an http:// or https:// prefix.
func NewDNSPod(secretID, secretKey, region, endpoint, zone, domain string) (*DNSPod, error) {
	sub, err := relativeName(domain, zone)
	if err != nil {
		return nil, err
	}
	if region == "" {
		region = regions.Shanghai
	}
	cpf := profile.NewClientProfile()
	if endpoint != "" {
		cpf.HttpProfile.Scheme, cpf.HttpProfile.Endpoint = splitEndpoint(endpoint)
	}
	c, err := dnspod.NewClient(common.NewCredential(secretID, secretKey), region, cpf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initiate dnspod API client")
	}
	return &DNSPod{client: c, zone: zone, subdomain: sub, logger: zerolog.Nop()}, nil
}

func (p *DNSPod) SetLogger(logger zerolog.Logger) { p.logger = logger }

// SetRecord implements ddnsd.Provider.
func (p *DNSPod) SetRecord(ctx context.Context, addr netip.Addr) error {
	record, err := p.FindRecord(ctx, FamilyOf(addr).RecordType())
	if err != nil {
		return errors.Wrap(err, "couldn't find record")
	}
	p.logger.Debug().Uint64("record_id", *record.RecordId).Msg("got record ID")
	if err := p.UpdateRecord(ctx, record, addr); err != nil {
		return errors.Wrap(err, "failed to set DNS record")
	}
	return nil
}

// FindRecord returns the first record of the given type at the provider's subdomain.
func (p *DNSPod) FindRecord(ctx context.Context, recordType string) (*dnspod.RecordListItem, error) {
	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(p.zone)
	req.Subdomain = common.StringPtr(p.subdomain)
	req.RecordType = common.StringPtr(recordType)
	resp, err := p.client.DescribeRecordListWithContext(ctx, req)
	if err != nil {
		var sdkErr *sdkerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) && sdkErr.GetCode() == dnspodNoRecords {
			return nil, errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, p.subdomain)
		}
		return nil, errors.Wrap(err, "couldn't fetch records")
	}
	if resp.Response == nil {
		return nil, errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, p.subdomain)
	}
	if r := pickDNSPodRecord(resp.Response.RecordList, recordType); r != nil {
		return r, nil
	}
	return nil, errors.Wrapf(ErrRecordNotFound, "%s %s", recordType, p.subdomain)
}

func pickDNSPodRecord(records []*dnspod.RecordListItem, recordType string) *dnspod.RecordListItem {
	for _, r := range records {
		if r.Type != nil && *r.Type == recordType && r.RecordId != nil {
			return r
		}
	}
	return nil
}

// UpdateRecord sets the value of record to addr, keeping its line.
func (p *DNSPod) UpdateRecord(ctx context.Context, record *dnspod.RecordListItem, addr netip.Addr) error {
	req := dnspod.NewModifyRecordRequest()
	req.Domain = common.StringPtr(p.zone)
	req.SubDomain = common.StringPtr(p.subdomain)
	req.RecordId = record.RecordId
	req.RecordType = common.StringPtr(FamilyOf(addr).RecordType())
	req.RecordLine = record.Line
	if req.RecordLine == nil {
		req.RecordLine = common.StringPtr("默认")
	}
	req.Value = common.StringPtr(addr.Unmap().String())
	if _, err := p.client.ModifyRecordWithContext(ctx, req); err != nil {
		return errors.Wrapf(err, "unable to update DNS record %d", *record.RecordId)
	}
	p.logger.Info().Uint64("record_id", *record.RecordId).Stringer("addr", addr).Msg("updated record")
	return nil
}
