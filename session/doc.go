// Package session implements the LetsShare connection lifecycle.
//
// A Session is one endpoint, playing receiver or sender for one connection
// at a time. All blocking socket work happens on a worker goroutine per
// connection; the owner issues commands and reads Events.
//
// # Receiving
//
//	s := session.New(opts, session.WithHistory(history.NewFileSink(opts.HistoryPath)))
//	defer s.Teardown()
//	if err := s.PrepareReceiver(opts.Port); err != nil {
//	    return err // ErrPortUnavailable when the port is taken
//	}
//	if err := s.AcceptOnce(ctx); err != nil {
//	    return err
//	}
//	for ev := range s.Events() {
//	    ...
//	}
//
// # Sending
//
//	if err := s.DialPeer(ctx, "192.168.1.20", config.DefaultPort); err != nil {
//	    return err // ErrInvalidAddress is reported before any socket call
//	}
//	if err := s.SendFile("/home/me/movie.mkv"); err != nil {
//	    return err
//	}
//	err := s.Wait()
//
// # Status
//
//	Idle -> Connecting | AwaitingPeer -> Connected -> Transferring -> Completed | Failed
//
// Disconnect moves any active connection to Disconnected and releases its
// resources; called again, or on a finished connection, it re-arms the
// session to Idle. Every connection's resources are released exactly once,
// whether the worker finishes, fails, or the owner disconnects.
package session
