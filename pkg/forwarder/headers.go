package forwarder

import "net/http"

// DefaultContentType is sent upstream when the inbound request has none.
const DefaultContentType = "application/json"

// ProjectHeaders derives the outbound header set from inbound headers. It
// always sets Content-Type, copies Authorization when present and drops
// everything else.
func ProjectHeaders(in http.Header) http.Header {
	out := make(http.Header, 2)

	contentType := in.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	out.Set("Content-Type", contentType)

	if auth := in.Values("Authorization"); len(auth) > 0 {
		out["Authorization"] = append([]string(nil), auth...)
	}
	return out
}
