// Package httputil centralizes JSON encoding and domain error translation
// for the HTTP layer.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "agentgate/pkg/domain-errors"
)

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// wireCode maps domain error codes to their snake_case wire names.
var wireCode = map[dErrors.Code]string{
	dErrors.CodeBadRequest:   "bad_request",
	dErrors.CodeUnauthorized: "unauthorized",
	dErrors.CodeForbidden:    "forbidden",
	dErrors.CodeNotFound:     "not_found",
	dErrors.CodeConflict:     "conflict",
	dErrors.CodeUnavailable:  "unavailable",
	dErrors.CodeInternal:     "internal_error",
}

// WriteError translates a domain error into a JSON response. Internal and
// unavailable errors omit the message so store details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: wireCode[code]}
	if code != dErrors.CodeInternal && code != dErrors.CodeUnavailable {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode unmarshals a JSON request body into T, rejecting unknown fields.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
