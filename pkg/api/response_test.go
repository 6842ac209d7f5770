package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tendant/campus-gateway/pkg/forwarder"
	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

func TestErrorResponse(t *testing.T) {
	verr := &resourcestore.ValidationError{}
	verr.Add("title", "Resource title is required.")
	verr.Add("category", "Category is required.")

	tests := []struct {
		name    string
		err     error
		code    int
		status  string
		message string
	}{
		{"validation", verr, http.StatusBadRequest, StatusFail, "Resource title is required., Category is required."},
		{"payload", resourcestore.ErrPayloadRequired, http.StatusBadRequest, StatusFail, `File is required for resource type "file".`},
		{"invalid id", fmt.Errorf("get: %w", resourcestore.ErrInvalidResourceID), http.StatusBadRequest, StatusFail, "Invalid resource ID format."},
		{"identity", resourcestore.ErrIdentityRequired, http.StatusUnauthorized, StatusFail, "Authentication required."},
		{"forbidden", resourcestore.ErrForbidden, http.StatusForbidden, StatusFail, "You are not authorized to delete this resource."},
		{"file unavailable", resourcestore.ErrFileUnavailable, http.StatusNotFound, StatusFail, "File resource not found or invalid."},
		{
			"not found",
			&resourcestore.ResourceError{ResourceID: uuid.New(), Op: "get", Err: resourcestore.ErrResourceNotFound},
			http.StatusNotFound, StatusFail, "Resource not found.",
		},
		{"duplicate", resourcestore.ErrDuplicateResource, http.StatusConflict, StatusFail, "Resource already exists."},
		{
			"storage",
			&resourcestore.StorageError{Backend: "fs", Key: "ab/cd", Op: "upload", Err: errors.New("disk full")},
			http.StatusInternalServerError, StatusError, "Internal server error.",
		},
		{
			"bad gateway",
			&forwarder.GatewayError{Kind: forwarder.BadGateway, Err: errors.New("timeout")},
			http.StatusBadGateway, StatusError, forwarder.BadGatewayMessage,
		},
		{"bad request body", invalidBody("Invalid JSON body."), http.StatusBadRequest, StatusFail, "Invalid JSON body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := errorResponse(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
