package http

import (
	"encoding/json"
	"net/http"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/pkg/httpx"
)

const maxBodyBytes = 1 << 20 // authenticator responses are small

// decodeBody parses a JSON request body into dst, writing the error envelope
// itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "request body must be valid JSON")
		return false
	}
	return true
}

// requestMeta captures transport facts ceremonies record for auditing.
func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		ClientIP: httpx.ClientIP(r),
		Origin:   r.Header.Get("Origin"),
	}
}
