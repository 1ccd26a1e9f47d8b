package passkeysdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListPasskeys returns the account's passkeys, newest first.
func (s *Session) ListPasskeys(ctx context.Context) ([]Passkey, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/passkeys", nil, nil)
	if err != nil {
		return nil, err
	}

	var list passkeyListResponse
	if err := decodeData(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Passkeys, nil
}

// RenamePasskey relabels one of the account's passkeys and returns the
// updated view.
func (s *Session) RenamePasskey(ctx context.Context, passkeyID, name string) (*Passkey, error) {
	resp, err := s.postAuthJSON(ctx, http.MethodPatch, "/v1/passkeys/"+url.PathEscape(passkeyID),
		passkeyRenameRequest{AuthenticatorName: name})
	if err != nil {
		return nil, err
	}

	var passkey Passkey
	if err := decodeData(resp, &passkey, http.StatusOK); err != nil {
		return nil, err
	}

	return &passkey, nil
}

// RemovePasskey deletes one of the account's passkeys. Removing a passkey the
// account does not own reports CREDENTIAL_NOT_FOUND.
func (s *Session) RemovePasskey(ctx context.Context, passkeyID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/passkeys/"+url.PathEscape(passkeyID), nil, nil)
	if err != nil {
		return err
	}

	return decodeData(resp, nil, http.StatusOK)
}
