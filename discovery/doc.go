// Package discovery advertises a waiting LetsShare receiver on the local
// network over mDNS and lets senders find it without typing an address.
//
// Receivers register a _letsshare._tcp instance for as long as they wait for
// a peer:
//
//	svc := discovery.NewService("")
//	closer, err := svc.Announce(5000, "session=" + id)
//	defer closer.Close()
//
// Senders browse for a bounded time:
//
//	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
//	defer cancel()
//	peers, err := discovery.Browse(ctx)
package discovery
