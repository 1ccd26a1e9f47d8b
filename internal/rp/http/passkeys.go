package http

import (
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/pkg/httpx"
)

type PasskeysHandler struct {
	Passkeys *service.PasskeyService
}

type passkeyListResponse struct {
	Passkeys []service.PasskeyInfo `json:"passkeys"`
}

type passkeyRenameRequest struct {
	AuthenticatorName string `json:"authenticatorName"`
}

// HandleList returns the caller's passkeys, newest first. Only public
// metadata is exposed.
func (h *PasskeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	passkeys, err := h.Passkeys.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, passkeyListResponse{Passkeys: passkeys})
}

// HandleRename relabels one of the caller's passkeys.
func (h *PasskeysHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	var req passkeyRenameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	passkey, err := h.Passkeys.Rename(r.Context(), userID, r.PathValue("id"), req.AuthenticatorName, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, passkey)
}

// HandleRemove deletes one of the caller's passkeys. Removing a passkey the
// caller does not own reports not-found.
func (h *PasskeysHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	if err := h.Passkeys.Remove(r.Context(), userID, r.PathValue("id"), requestMeta(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, nil)
}
