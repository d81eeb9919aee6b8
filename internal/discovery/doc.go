// Package discovery finds apswitch status sites on the local network.
//
// A running access point advertises itself over mDNS as an _https._tcp
// service with an "apswitch=<version>" TXT record (see network.Advertise).
// Scanner browses for those services from a client that has joined the
// network:
//
//	scanner := discovery.NewScanner()
//	aps, err := scanner.Scan(ctx)
//	for _, ap := range aps {
//	    fmt.Println(ap.BaseURL())
//	}
//
// WaitFor blocks until a specific hostname answers.
package discovery
