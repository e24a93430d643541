package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abusaleh34/secure-cas-commercial/internal/api"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/stats"
)

// Provision reconciles an external authentication into a local identity.
func (c *Client) Provision(ctx context.Context, username, source string, attributes map[string]any) (*core.Identity, error) {
	payload := api.ProvisionPayload{
		Username:   username,
		Source:     source,
		Attributes: attributes,
	}
	var identity core.Identity
	err := c.post(ctx, c.url().
		setPath(api.ProvisionRoute).
		build(), payload, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *Client) DeactivateUser(ctx context.Context, username string) error {
	return c.setUserActive(ctx, username, api.DeactivateUserRoute)
}

func (c *Client) ActivateUser(ctx context.Context, username string) error {
	return c.setUserActive(ctx, username, api.ActivateUserRoute)
}

func (c *Client) setUserActive(ctx context.Context, username, route string) error {
	var res api.StatusResponse
	err := c.post(ctx, c.url().
		setPath(route).
		setPathParam("username", username).
		build(), nil, &res)
	if err != nil {
		return err
	}
	if res.Status != "ok" {
		return fmt.Errorf("unexpected response status: %s", res.Status)
	}
	return nil
}

// ListUsersOpts narrows a user search. Zero values mean "any".
type ListUsersOpts struct {
	Source string
	Active *bool
	Query  string
}

func (c *Client) ListUsers(ctx context.Context, opts ListUsersOpts) ([]core.Identity, error) {
	ub := c.url().setPath(api.ListUsersRoute)
	if opts.Source != "" {
		ub = ub.addQueryParam("source", opts.Source)
	}
	if opts.Active != nil {
		ub = ub.addQueryParam("active", strconv.FormatBool(*opts.Active))
	}
	if opts.Query != "" {
		ub = ub.addQueryParam("q", opts.Query)
	}
	var users []core.Identity
	err := c.get(ctx, ub.build(), &users)
	return users, err
}

// InactiveUsers lists active identities without a login in the given number
// of days.
func (c *Client) InactiveUsers(ctx context.Context, days int) ([]core.Identity, error) {
	var users []core.Identity
	err := c.get(ctx, c.url().
		setPath(api.InactiveUsersRoute).
		addQueryParam("days", strconv.Itoa(days)).
		build(), &users)
	return users, err
}

func (c *Client) Stats(ctx context.Context) (*stats.Overview, error) {
	var overview stats.Overview
	err := c.get(ctx, c.url().
		setPath(api.StatsRoute).
		build(), &overview)
	if err != nil {
		return nil, err
	}
	return &overview, nil
}
