package forwarder

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectHeaders(t *testing.T) {
	tests := []struct {
		name     string
		in       http.Header
		expected http.Header
	}{
		{
			name:     "empty gets default content type",
			in:       http.Header{},
			expected: http.Header{"Content-Type": {"application/json"}},
		},
		{
			name: "keeps content type and authorization",
			in: http.Header{
				"Content-Type":  {"multipart/form-data; boundary=x"},
				"Authorization": {"Bearer abc"},
			},
			expected: http.Header{
				"Content-Type":  {"multipart/form-data; boundary=x"},
				"Authorization": {"Bearer abc"},
			},
		},
		{
			name: "drops everything else",
			in: http.Header{
				"Cookie":          {"session=1"},
				"Host":            {"gateway.local"},
				"X-Forwarded-For": {"10.0.0.1"},
				"Authorization":   {"Bearer abc"},
			},
			expected: http.Header{
				"Content-Type":  {"application/json"},
				"Authorization": {"Bearer abc"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProjectHeaders(tt.in))
		})
	}
}

func TestProjectHeaders_DoesNotAliasInput(t *testing.T) {
	in := http.Header{"Authorization": {"Bearer abc"}}
	out := ProjectHeaders(in)
	out["Authorization"][0] = "changed"
	assert.Equal(t, "Bearer abc", in.Get("Authorization"))
}
