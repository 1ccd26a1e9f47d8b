package passkeysdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// StartRegistration opens a registration ceremony for the given email.
// The returned options document drives navigator.credentials.create in the
// browser; the ceremony ID must be echoed back to FinishRegistration.
func (c *SDKClient) StartRegistration(ctx context.Context, email, displayName string) (*CeremonyStart, error) {
	resp, err := c.postJSON(ctx, "/v1/register/start", registerStartRequest{
		Email:       email,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}

	var start CeremonyStart
	if err := decodeData(resp, &start, http.StatusOK); err != nil {
		return nil, err
	}

	return &start, nil
}

// FinishRegistration completes a registration ceremony with the
// authenticator's attestation response. authenticatorName labels the new
// passkey and may be empty.
func (c *SDKClient) FinishRegistration(
	ctx context.Context,
	ceremonyID string,
	response json.RawMessage,
	authenticatorName string,
) (*RegistrationResult, error) {
	resp, err := c.postJSON(ctx, "/v1/register/finish", registerFinishRequest{
		CeremonyID:        ceremonyID,
		Response:          response,
		AuthenticatorName: authenticatorName,
	})
	if err != nil {
		return nil, err
	}

	var result RegistrationResult
	if err := decodeData(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}

	return &result, nil
}

// StartLogin opens an authentication ceremony. An empty email requests a
// discoverable ceremony where the authenticator chooses the credential.
func (c *SDKClient) StartLogin(ctx context.Context, email string) (*CeremonyStart, error) {
	resp, err := c.postJSON(ctx, "/v1/login/start", loginStartRequest{Email: email})
	if err != nil {
		return nil, err
	}

	var start CeremonyStart
	if err := decodeData(resp, &start, http.StatusOK); err != nil {
		return nil, err
	}

	return &start, nil
}

// FinishLogin completes an authentication ceremony with the authenticator's
// assertion response.
func (c *SDKClient) FinishLogin(
	ctx context.Context,
	ceremonyID string,
	response json.RawMessage,
) (*AuthenticationResult, error) {
	resp, err := c.postJSON(ctx, "/v1/login/finish", loginFinishRequest{
		CeremonyID: ceremonyID,
		Response:   response,
	})
	if err != nil {
		return nil, err
	}

	var result AuthenticationResult
	if err := decodeData(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}

	return &result, nil
}
