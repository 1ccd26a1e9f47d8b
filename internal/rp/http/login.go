package http

import (
	"encoding/json"
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/pkg/httpx"
)

type LoginHandler struct {
	Ceremonies *service.CeremonyService
}

type loginStartRequest struct {
	// Email is optional: empty means a discoverable ceremony where the
	// authenticator chooses the credential.
	Email string `json:"email,omitempty"`
}

type loginFinishRequest struct {
	CeremonyID string          `json:"ceremonyId"`
	Response   json.RawMessage `json:"response"`
}

type loginFinishResponse struct {
	Verified bool `json:"verified"`
	*service.AuthenticationResult
}

// HandleStart opens an authentication ceremony and returns the assertion
// options the browser feeds to navigator.credentials.get.
func (h *LoginHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req loginStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start, err := h.Ceremonies.BeginAuthentication(r.Context(), req.Email, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, start)
}

// HandleFinish completes the ceremony with the authenticator's assertion
// response and returns a single-use login token for the resolved account.
func (h *LoginHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	var req loginFinishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CeremonyID == "" || len(req.Response) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "ceremonyId and response are required")
		return
	}

	result, err := h.Ceremonies.FinishAuthentication(r.Context(), req.CeremonyID, req.Response, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, loginFinishResponse{Verified: true, AuthenticationResult: result})
}
