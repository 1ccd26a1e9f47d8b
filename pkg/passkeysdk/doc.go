/*
Package passkeysdk provides a client SDK for the passkeyd relying-party
service.

# Overview

The package is organized around two main types:

  - SDKClient: drives WebAuthn ceremonies and other unauthenticated endpoints
  - Session: provides authenticated passkey management with a bearer token

Create an SDKClient to run ceremonies:

	client := passkeysdk.NewSDKClient("https://passkeys.example.com")
	client.Origin = "https://app.example.com"

	// Open a registration ceremony
	start, err := client.StartRegistration(ctx, "user@example.com", "User")

	// Feed start.Options to navigator.credentials.create in the browser,
	// then complete the ceremony with the attestation response.
	result, err := client.FinishRegistration(ctx, start.CeremonyID, attestation, "Laptop")

	// Redeem the single-use login token for a session
	session, err := client.Authenticate(ctx, result.LoginToken)

Use a Session for authenticated operations:

	passkeys, err := session.ListPasskeys(ctx)
	passkey, err := session.RenamePasskey(ctx, passkeys[0].ID, "YubiKey")
	err = session.RemovePasskey(ctx, passkeys[0].ID)

# Error Handling

Service errors are returned as *APIError carrying the HTTP status and the
taxonomy code. Use ErrorCode to branch on the code:

	_, err := client.FinishLogin(ctx, ceremonyID, assertion)
	if passkeysdk.ErrorCode(err) == passkeysdk.ErrorCodeChallengeExpired {
		// restart the ceremony
	}

Login tokens are single use: a second RedeemLoginToken of the same token
fails with UNAUTHORIZED. Sessions do not refresh; when a session expires,
authenticated calls return ErrSessionExpired and the caller must complete a
new ceremony.
*/
package passkeysdk
