// Package provider contains the HTTP clients for the two remote authorities
// involved in an edge deployment: the security authority that owns corps,
// sites and edge deployments, and the CDN that owns services, dictionaries
// and products.
//
// Every call goes through a per-authority rate limiter and is recorded as a
// Prometheus sample and an OpenTelemetry client span. Calls that do not end
// with a 2xx status return a *StatusError; a Code of 0 means no response was
// received.
package provider
