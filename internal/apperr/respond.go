package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   string         `json:"cause,omitempty"`
}

// WriteHTTP renders err as a structured JSON error response.
// The underlying cause is included only when includeCause is set
// (non-release configuration).
func WriteHTTP(w http.ResponseWriter, err error, includeCause bool) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Wrap(CodeProvider, "internal error", err)
	}

	detail := errorDetail{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if includeCause && appErr.Err != nil {
		detail.Cause = appErr.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(appErr.Code))
	json.NewEncoder(w).Encode(errorBody{Error: detail})
}
