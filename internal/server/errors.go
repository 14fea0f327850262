package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/stagetower/pkg/errors"
)

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidReport,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidDirection:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeReportNotFound, errors.ErrCodeUnknownStage:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as JSON. Errors without a code are logged and
// reported as INTERNAL_ERROR without their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Code:    errors.ErrCodeInvalidReport,
			Message: "report exceeds the upload limit",
		})
		return
	}

	code := errors.GetCode(err)
	status := statusFor(code)
	body := errorBody{Code: code, Message: errors.UserMessage(err)}
	if code == "" || status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body = errorBody{Code: errors.ErrCodeInternal, Message: "internal error"}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
