// Package forwarder relays requests from the gateway's external API to the
// upstream API.
//
// One Forwarder serves every upstream domain (auth, profile, academics,
// communities, content). It issues at most one upstream call per inbound
// request, relays the upstream status and body verbatim, and classifies its
// own failures as BadGateway (no response from upstream) or
// InternalProxyError (the call could not be built).
package forwarder
