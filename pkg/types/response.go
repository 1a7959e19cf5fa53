// Package types holds the JSON envelope shapes shared by every API
// response. The frontend unwraps `data` on success and switches on
// `error.code` otherwise, so these shapes stay stable across versions.
package types

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-visible error payload. Details carries
// structured context, such as per-field validation messages or an
// access decision, only when the error code permits it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
