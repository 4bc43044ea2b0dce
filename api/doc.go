// Package api exposes the member queries over HTTP with gin. Every request
// gets its own request scope, closed when the response is written.
package api
