package passkeysdk

import (
	"context"
	"net/http"
)

// RedeemLoginToken exchanges a single-use login token from a completed
// ceremony for a bearer session token. A token redeems exactly once.
func (c *SDKClient) RedeemLoginToken(ctx context.Context, loginToken string) (*SessionToken, error) {
	resp, err := c.postJSON(ctx, "/v1/session/redeem", sessionRedeemRequest{LoginToken: loginToken})
	if err != nil {
		return nil, err
	}

	var tok SessionToken
	if err := decodeData(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}

	return &tok, nil
}

// Authenticate redeems a login token and wraps the result in a Session for
// authenticated passkey management.
func (c *SDKClient) Authenticate(ctx context.Context, loginToken string) (*Session, error) {
	tok, err := c.RedeemLoginToken(ctx, loginToken)
	if err != nil {
		return nil, err
	}

	return c.NewSession(tok), nil
}
