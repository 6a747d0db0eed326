package handlers

import (
	"net/http"

	apperrors "github.com/codelens/codelens/internal/errors"
)

// ErrorResponder writes an error response for a request.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

// httpErrorResponder is the active responder. The server package injects its
// central handler at startup; the default goes straight to the shared
// responder so handlers stay usable in isolation.
var httpErrorResponder ErrorResponder = defaultHTTPErrorResponder

func defaultHTTPErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetHTTPErrorResponder installs the centralized error handler. Passing nil
// restores the default.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		responder = defaultHTTPErrorResponder
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
