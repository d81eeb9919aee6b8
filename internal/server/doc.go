// Package server implements the access point's HTTPS status server.
//
// The server is deliberately small: three routes, one connection at a time,
// one request per connection.
//
// # Routes
//
//	GET /        200 text/html  status page (placeholders filled per request)
//	ANY /admin   200 text/html  login page stub, no authentication
//	*            404 text/html  not-found page
//
// The route table is built in New and frozen by Start. Registering a route
// afterwards fails with ErrRouteTableFrozen.
//
// # Serving Model
//
// Serve is a cooperative loop driven by a single goroutine. Each iteration
// calls Step, which waits up to the accept window for a connection and, if
// one arrives, performs the TLS handshake, reads one request, dispatches it
// and writes one response with "Connection: close". The loop then sleeps for
// the configured idle delay. There are no per-connection goroutines, so
// request latency is bounded by the loop cadence.
//
// # TLS
//
// TLS 1.2 and 1.3 are accepted. Session resumption is served from a
// server-side cache of SessionCacheSize (5) sessions with LRU eviction;
// clients only ever see an opaque random ticket.
//
// # Status
//
// Status reports the server state using the TCP state names of the embedded
// web server this mirrors: CLOSED before Start and after Shutdown, LISTEN
// while waiting, ESTABLISHED while a connection is being served.
//
// # Usage Example
//
//	srv, err := server.New(server.Config{
//	    Settings:   settings,
//	    Credential: cred,
//	    Pages:      pages.New(identity, pages.NewSystemMetrics()),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	return srv.Serve(ctx)
package server
