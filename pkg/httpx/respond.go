package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

type ErrorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Kind   string              `json:"kind"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

var ErrInvalidBody = apperr.New(apperr.KindValidation, "invalid_body", "invalid request body")

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes the error body. The body
// only carries the message of the typed error; the full chain is logged.
func WriteError(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)

	body := ErrorBody{
		Error:  apperr.MessageOf(err),
		Code:   apperr.CodeOf(err),
		Kind:   kind.String(),
		Fields: apperr.FieldsOf(err),
	}
	if kind == apperr.KindUnexpected {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body.Error = http.StatusText(status)
	} else {
		log.Info("request rejected", "method", r.Method, "path", r.URL.Path, "code", body.Code, "err", err)
	}
	WriteJSON(w, status, body)
}

func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into v. Unknown fields are rejected.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.Validation([]apperr.FieldError{{Field: typeErr.Field, Message: "has the wrong type"}})
		}
		return ErrInvalidBody
	}
	return nil
}
