package http

import (
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/pkg/httpx"
)

type SessionHandler struct {
	Identity *service.IdentityService
}

type sessionRedeemRequest struct {
	LoginToken string `json:"loginToken"`
}

// HandleRedeem exchanges a single-use login token from a completed ceremony
// for a bearer session. A second redemption of the same token fails.
func (h *SessionHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req sessionRedeemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LoginToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "loginToken is required")
		return
	}

	session, err := h.Identity.RedeemLoginToken(r.Context(), req.LoginToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, session)
}
