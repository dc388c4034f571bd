// Package httpserver constructs the process-wide HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for addr with a read-header timeout, so idle
// connections cannot hold a worker forever.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
