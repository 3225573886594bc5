// Package httpserver owns the http.Server construction so the listen
// timeouts live in one place instead of in main.
package httpserver

import (
	"net/http"
	"time"
)

// Header reads are bounded tightly; request deadlines are enforced per route
// by the router's timeout middleware, so no WriteTimeout is set here.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// New returns a server for addr serving handler.
func New(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	srv.ReadHeaderTimeout = readHeaderTimeout
	srv.IdleTimeout = idleTimeout
	return srv
}
