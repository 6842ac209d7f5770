package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/campus-gateway/pkg/forwarder"
	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// Response status values
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// ErrorResponse is the body of every non-relayed error
type ErrorResponse struct {
	Status  string                         `json:"status"`
	Message string                         `json:"message"`
	Errors  []resourcestore.FieldViolation `json:"errors,omitempty"`
}

// MessageResponse is a success body without data
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RenderError maps err to a status code and writes the error envelope.
// 4xx responses carry status "fail", 5xx responses "error".
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"err", err)
	}
	render.Status(r, code)
	render.JSON(w, r, body)
}

// RenderFail writes a client error with a fixed message.
func RenderFail(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, ErrorResponse{Status: StatusFail, Message: message})
}

func errorResponse(err error) (int, ErrorResponse) {
	fail := func(code int, msg string) (int, ErrorResponse) {
		return code, ErrorResponse{Status: StatusFail, Message: msg}
	}

	var verr *resourcestore.ValidationError
	var gwErr *forwarder.GatewayError
	var badReq *badRequestError
	switch {
	case errors.As(err, &badReq):
		return fail(http.StatusBadRequest, badReq.message)
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Status: StatusFail, Message: verr.Error(), Errors: verr.Violations}
	case errors.As(err, &gwErr):
		return gwErr.StatusCode(), ErrorResponse{Status: StatusError, Message: gwErr.Message()}
	case errors.Is(err, resourcestore.ErrPayloadRequired):
		return fail(http.StatusBadRequest, `File is required for resource type "file".`)
	case errors.Is(err, resourcestore.ErrInvalidResourceID):
		return fail(http.StatusBadRequest, "Invalid resource ID format.")
	case errors.Is(err, resourcestore.ErrIdentityRequired):
		return fail(http.StatusUnauthorized, "Authentication required.")
	case errors.Is(err, resourcestore.ErrForbidden):
		return fail(http.StatusForbidden, "You are not authorized to delete this resource.")
	case errors.Is(err, resourcestore.ErrFileUnavailable):
		return fail(http.StatusNotFound, "File resource not found or invalid.")
	case errors.Is(err, resourcestore.ErrResourceNotFound):
		return fail(http.StatusNotFound, "Resource not found.")
	case errors.Is(err, resourcestore.ErrDuplicateResource):
		return fail(http.StatusConflict, "Resource already exists.")
	default:
		return http.StatusInternalServerError, ErrorResponse{Status: StatusError, Message: "Internal server error."}
	}
}
