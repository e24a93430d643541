package client

import (
	"context"
	"strconv"

	"github.com/abusaleh34/secure-cas-commercial/internal/api"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

type ListAuditRecordsOpts struct {
	Limit     uint
	Principal string
	Action    string
}

// ListAuditRecords retrieves the latest audit records from the server.
func (c *Client) ListAuditRecords(ctx context.Context, opts ListAuditRecordsOpts) ([]core.AuditRecord, error) {
	ub := c.url().setPath(api.ListAuditRecordsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", strconv.FormatUint(uint64(opts.Limit), 10))
	}
	if opts.Principal != "" {
		ub = ub.addQueryParam("principal", opts.Principal)
	}
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	var records []core.AuditRecord
	err := c.get(ctx, ub.build(), &records)
	return records, err
}
