package http

import (
	"errors"
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/pkg/httpx"
	"github.com/lockplane/passkeyd/pkg/slogx"
)

// statusForCode maps the service error taxonomy onto HTTP statuses.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidInput, domain.CodeVerificationFailed:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeChallengeMismatch:
		return http.StatusConflict
	case domain.CodeChallengeExpired:
		return http.StatusGone
	case domain.CodeCredentialNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders any service error as an envelope. Errors outside
// the taxonomy are logged and collapsed to UNKNOWN_ERROR so internals never
// reach the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		de = domain.ErrUnknown
	}

	if de.Code == domain.CodeRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	httpx.WriteError(w, statusForCode(de.Code), string(de.Code), de.Message)
}
