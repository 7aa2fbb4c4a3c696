package testutil

import (
	"net/http"

	"studentreg/pkg/requestcontext"
)

// WithRequestID stamps a request with the ID the RequestID middleware would set.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithAdminToken sets the header checked by the admin middleware.
func WithAdminToken(req *http.Request, token string) *http.Request {
	req.Header.Set("X-Admin-Token", token)
	return req
}
