// Package middleware provides the gin middleware of the stock API: request
// ids, tenant scoping, body limits, validation formatting and tracing.
package middleware
