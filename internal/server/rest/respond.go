package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps a service error to its HTTP status and client-facing text.
// Store failures never reveal their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusBadRequest, "user already exists"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "conflicting update, retry"
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, common.ErrTokenNotFound):
		return http.StatusUnauthorized, "token not found"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, common.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeDetail(w, status, detail)
}

// decode reads a JSON body into dst, answering 422 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return false
	}
	return true
}
