// Package handler adapts HTTP requests to the marketplace services.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/bidhub/internal/api/middleware"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeBody reads a JSON body into dst and runs its validate tags.
// A validation failure is reported with invalidMsg.
func decodeBody(r *http.Request, dst any, invalidMsg string) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(invalidMsg)
		}
		return apperr.Validation("Invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			slog.Debug("request validation failed", "field", ve[0].Field(), "tag", ve[0].Tag())
		}
		return apperr.Validation(invalidMsg)
	}
	return nil
}

// pathID parses a uuid route parameter.
func pathID(r *http.Request, param, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, apperr.Validation(fmt.Sprintf("Invalid %s ID", label))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name + " must be an integer")
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation(name + " must be a number")
	}
	return &v, nil
}

// principal returns the authenticated caller. Routes using it sit behind
// Auth.Authenticate, so a missing principal is a wiring bug.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := mw.GetPrincipal(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
	}
	return p, ok
}

// writeError maps a service error onto the response envelope. Errors outside
// the apperr taxonomy are logged and reported with fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, fallback)
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		response.Error(w, http.StatusBadRequest, response.CodeValidation, e.Message)
	case apperr.KindForbidden:
		response.Error(w, http.StatusForbidden, response.CodeForbidden, e.Message)
	case apperr.KindConflict:
		response.Error(w, http.StatusBadRequest, response.CodeConflict, e.Message)
	case apperr.KindNotFound:
		response.Error(w, http.StatusNotFound, response.CodeNotFound, e.Message)
	default:
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, fallback)
	}
}
