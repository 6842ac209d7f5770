package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tendant/campus-gateway/pkg/forwarder"
)

// DefaultMaxProxyBodyBytes bounds request bodies relayed upstream.
const DefaultMaxProxyBodyBytes = 10 << 20

// Relay issues one upstream call per request.
type Relay interface {
	Forward(ctx context.Context, req forwarder.Request) (*forwarder.Response, error)
}

// ProxyHandler relays every request it receives to the upstream API,
// with the mount prefix removed from the path.
type ProxyHandler struct {
	relay        Relay
	stripPrefix  string
	maxBodyBytes int64
}

// ProxyHandlerOption configures a ProxyHandler
type ProxyHandlerOption func(*ProxyHandler)

// WithStripPrefix removes prefix from inbound paths before relaying.
func WithStripPrefix(prefix string) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		h.stripPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithMaxBodyBytes bounds inbound request bodies.
func WithMaxBodyBytes(n int64) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewProxyHandler(relay Relay, options ...ProxyHandlerOption) *ProxyHandler {
	h := &ProxyHandler{
		relay:        relay,
		maxBodyBytes: DefaultMaxProxyBodyBytes,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RenderFail(w, r, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		RenderFail(w, r, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	resp, err := h.relay.Forward(r.Context(), forwarder.Request{
		Method: r.Method,
		Path:   h.upstreamPath(r),
		Query:  r.URL.Query(),
		Body:   body,
		Header: r.Header,
	})
	if err != nil {
		RenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType())
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Warn("Failed to write relayed response", "path", r.URL.Path, "err", err)
	}
}

// upstreamPath keeps the escaped form of the inbound path so encoded
// segments reach the upstream unchanged.
func (h *ProxyHandler) upstreamPath(r *http.Request) string {
	p := r.URL.EscapedPath()
	if h.stripPrefix != "" {
		p = strings.TrimPrefix(p, h.stripPrefix)
	}
	if p == "" {
		p = "/"
	}
	return p
}
