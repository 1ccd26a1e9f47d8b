package http

import (
	"encoding/json"
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/pkg/httpx"
)

type RegisterHandler struct {
	Ceremonies *service.CeremonyService
}

type registerStartRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type registerFinishRequest struct {
	CeremonyID        string          `json:"ceremonyId"`
	Response          json.RawMessage `json:"response"`
	AuthenticatorName string          `json:"authenticatorName,omitempty"`
}

type registerFinishResponse struct {
	Verified bool `json:"verified"`
	*service.RegistrationResult
}

// HandleStart opens a registration ceremony and returns the creation options
// the browser feeds to navigator.credentials.create.
func (h *RegisterHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req registerStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start, err := h.Ceremonies.BeginRegistration(r.Context(), req.Email, req.DisplayName, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, start)
}

// HandleFinish completes the ceremony with the authenticator's attestation
// response and returns the new passkey plus a single-use login token.
func (h *RegisterHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	var req registerFinishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CeremonyID == "" || len(req.Response) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "ceremonyId and response are required")
		return
	}

	result, err := h.Ceremonies.FinishRegistration(r.Context(), req.CeremonyID, req.Response, req.AuthenticatorName, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, registerFinishResponse{Verified: true, RegistrationResult: result})
}
