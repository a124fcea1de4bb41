package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tvabook-dev/tvabook/internal/archive"
	"github.com/tvabook-dev/tvabook/internal/rules"
)

type errorBody struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the core error taxonomy onto HTTP statuses. Core errors
// pass through unmodified in the detail field.
func writeError(w http.ResponseWriter, err error) {
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		body := errorBody{Detail: "validation failed"}
		for _, f := range verr.Fields {
			body.Errors = append(body.Errors, f.Error())
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	var nferr *rules.NotFoundError
	if errors.As(err, &nferr) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: nferr.Error()})
		return
	}

	var rnferr *archive.NotFoundError
	if errors.As(err, &rnferr) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: rnferr.Error()})
		return
	}

	var cerr *rules.ConflictError
	if errors.As(err, &cerr) {
		writeJSON(w, http.StatusConflict, errorBody{Detail: cerr.Error()})
		return
	}

	var cfgErr *rules.ConfigError
	if errors.As(err, &cfgErr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: cfgErr.Error()})
		return
	}

	var perr *rules.PersistenceError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: perr.Error()})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error()})
}
