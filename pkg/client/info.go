package client

import (
	"context"

	"github.com/abusaleh34/secure-cas-commercial/internal/api"
	"github.com/abusaleh34/secure-cas-commercial/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, error) {
	var info buildinfo.Info
	err := c.get(ctx, c.url().
		setPath(api.AboutRoute).
		build(), &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
