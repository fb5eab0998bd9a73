// Package httpapi exposes the scheduling service over HTTP. The surface is
// deliberately thin: JSON in, JSON out, chi for routing, no authentication.
// All domain rules live in pkg/scheduler; handlers only validate shape and
// bounds before delegating.
package httpapi
