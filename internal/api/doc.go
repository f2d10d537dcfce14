// Package api exposes the review workflow and study analytics over HTTP.
//
// Handlers translate requests into service calls and map domain errors onto
// status codes; the services remain unaware of HTTP. Every handler reads the
// reference time from the router's clock so responses are reproducible in
// tests.
package api
