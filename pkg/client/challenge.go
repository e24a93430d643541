package client

import (
	"context"
	"fmt"

	"github.com/abusaleh34/secure-cas-commercial/internal/api"
)

// IssueChallenge issues a one-time code for a principal and returns it for
// host-owned delivery.
func (c *Client) IssueChallenge(ctx context.Context, username string) (string, error) {
	var res api.IssueChallengeResponse
	err := c.post(ctx, c.url().
		setPath(api.IssueChallengeRoute).
		build(), api.IssueChallengePayload{Username: username}, &res)
	return res.Code, err
}

// VerifyChallenge consumes a one-time code. False with a nil error means
// the code did not match.
func (c *Client) VerifyChallenge(ctx context.Context, username, code string) (bool, error) {
	var res api.VerifyChallengeResponse
	err := c.post(ctx, c.url().
		setPath(api.VerifyChallengeRoute).
		build(), api.VerifyChallengePayload{Username: username, Code: code}, &res)
	return res.Verified, err
}

// SendChallenge issues a code and has the server deliver it. Channel is
// "sms" or "email"; an empty destination uses the identity's stored contact.
func (c *Client) SendChallenge(ctx context.Context, username, channel, destination string) error {
	var res api.StatusResponse
	err := c.post(ctx, c.url().
		setPath(api.SendChallengeRoute).
		build(), api.SendChallengePayload{
		Username:    username,
		Channel:     channel,
		Destination: destination,
	}, &res)
	if err != nil {
		return err
	}
	if res.Status != "sent" {
		return fmt.Errorf("unexpected response status: %s", res.Status)
	}
	return nil
}
